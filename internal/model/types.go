package model

// Kind identifies what a parsed RAML file contains.
type Kind string

const (
	KindDocument Kind = "document"
	KindLibrary  Kind = "library"
	KindDataType Kind = "datatype"
	KindTrait    Kind = "trait"
	KindExample  Kind = "example"
)

// Document is the parsed model of one RAML file (a base unit).
type Document struct {
	ID            string
	Location      string
	Kind          Kind
	Version       string
	Encodes       *WebAPI
	Declares      []*Shape
	Traits        []*Trait
	ResourceTypes []*ResourceType
	Uses          map[string]*Document
	References    []*Document
	Fragment      *Shape
}

// WebAPI is the API encoded by a RAML API document.
type WebAPI struct {
	Name        string
	Description string
	Version     string
	BaseURI     string
	MediaTypes  []string
	Protocols   []string
	EndPoints   []*EndPoint
}

// EndPoint is a resource with its full path.
type EndPoint struct {
	Path          string
	RelativePath  string
	DisplayName   string
	Description   string
	URIParameters []*Property
	Operations    []*Operation

	// Type names the applied resource type; TypeParams holds the values of
	// its <<parameters>>.
	Type       string
	TypeParams map[string]string
}

// Operation is an HTTP method on a resource.
type Operation struct {
	Method          string
	DisplayName     string
	Description     string
	Is              []string
	QueryParameters []*Property
	Headers         []*Property
	Body            []*Payload
	Responses       []*Response
}

// Payload is a body for one media type.
type Payload struct {
	MediaType string
	Schema    *Shape
}

// Response describes one status code of an operation.
type Response struct {
	StatusCode  string
	Description string
	Headers     []*Property
	Body        []*Payload
}

// Trait is a reusable set of operation facets applied through `is:`.
type Trait struct {
	Name            string
	Description     string
	QueryParameters []*Property
	Headers         []*Property
	Responses       []*Response
}

// ResourceType is a reusable set of methods applied through a resource's
// `type:`. Methods listed in Optional are only merged into a resource that
// declares them itself.
type ResourceType struct {
	Name        string
	Description string
	Operations  []*Operation
	Optional    map[string]bool
}

// Shape is a RAML data type.
type Shape struct {
	ID          string
	Name        string
	Type        string
	Inherits    []string
	Link        *Shape
	Parents     []*Shape
	Description string
	Properties  []*Property
	Items       *Shape
	AnyOf       []*Shape
	Enum        []any
	Pattern     string
	Format      string
	MinLength   *int
	MaxLength   *int
	Minimum     *float64
	Maximum     *float64
	Example     any
	Examples    map[string]any
	Default     any
	Location    string
	Line        int
}

// Property is a named, possibly required, shape member (also used for
// parameters and headers).
type Property struct {
	Name     string
	Required bool
	Shape    *Shape
}
