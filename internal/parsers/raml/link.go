package raml

import "raml-toolkit/internal/model"

// link points every shape that names a declared type at that declaration,
// for doc and everything it references. Problems are passed to report when
// it is non-nil.
func link(doc *model.Document, report func(*Violation)) {
	if report == nil {
		report = func(*Violation) {}
	}
	visited := map[*model.Document]bool{}
	var walk func(d *model.Document)
	walk = func(d *model.Document) {
		if d == nil || visited[d] {
			return
		}
		visited[d] = true
		for _, ref := range d.References {
			walk(ref)
		}
		l := &linker{doc: d, report: report, seen: map[*model.Shape]bool{}}
		l.document()
	}
	walk(doc)
}

type linker struct {
	doc    *model.Document
	report func(*Violation)
	seen   map[*model.Shape]bool
}

func (l *linker) document() {
	d := l.doc
	for _, s := range d.Declares {
		l.shape(s)
	}
	l.shape(d.Fragment)
	for _, t := range d.Traits {
		l.props(t.QueryParameters)
		l.props(t.Headers)
		l.responses(t.Responses)
	}
	if d.Encodes != nil {
		for _, ep := range d.Encodes.EndPoints {
			if ep.Type != "" && d.ResourceType(ep.Type) == nil {
				l.report(violationf(CodeUnresolvedResourceType, d.Location, 0,
					"resource type '%s' applied to %s not found", ep.Type, ep.Path))
			}
			l.props(ep.URIParameters)
			for _, op := range ep.Operations {
				l.props(op.QueryParameters)
				l.props(op.Headers)
				l.payloads(op.Body)
				l.responses(op.Responses)
				for _, name := range op.Is {
					if d.Trait(name) == nil {
						l.report(violationf(CodeUnresolvedTrait, d.Location, 0,
							"trait '%s' applied to %s %s not found", name, op.Method, ep.Path))
					}
				}
			}
		}
	}
	for _, s := range d.Declares {
		if inheritsFrom(s, s, map[*model.Shape]bool{}) {
			l.report(violationf(CodeCyclicReference, d.Location, s.Line, "type '%s' inherits from itself", s.Name))
			s.Parents = nil
			s.Link = nil
		}
	}
}

func (l *linker) shape(s *model.Shape) {
	if s == nil || l.seen[s] {
		return
	}
	l.seen[s] = true
	if len(s.Inherits) > 0 {
		s.Parents = nil
		s.Link = nil
		for _, name := range s.Inherits {
			target := l.doc.Declared(name)
			if target == nil {
				l.report(violationf(CodeUnresolvedType, l.doc.Location, s.Line, "reference '%s' not found", name))
				continue
			}
			s.Parents = append(s.Parents, target)
		}
		if len(s.Parents) > 0 {
			s.Link = s.Parents[0]
		}
	}
	l.props(s.Properties)
	l.shape(s.Items)
	for _, v := range s.AnyOf {
		l.shape(v)
	}
}

func (l *linker) props(props []*model.Property) {
	for _, p := range props {
		l.shape(p.Shape)
	}
}

func (l *linker) payloads(payloads []*model.Payload) {
	for _, p := range payloads {
		l.shape(p.Schema)
	}
}

func (l *linker) responses(responses []*model.Response) {
	for _, r := range responses {
		l.props(r.Headers)
		l.payloads(r.Body)
	}
}

func inheritsFrom(s, target *model.Shape, seen map[*model.Shape]bool) bool {
	for _, parent := range s.Parents {
		if parent == target {
			return true
		}
		if seen[parent] {
			continue
		}
		seen[parent] = true
		if inheritsFrom(parent, target, seen) {
			return true
		}
	}
	return false
}
