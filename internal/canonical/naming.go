// Package canonical turns RAML display names into the identifiers used by
// generated artifacts.
package canonical

import (
	"strconv"
	"strings"
	"unicode"

	"raml-toolkit/internal/model"
)

// Words splits a name into words. Any rune that is not a letter or digit
// separates words, as do lower-to-upper case transitions and the end of an
// upper-case run ("HTTPServer" gives "HTTP", "Server").
func Words(input string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}
	runes := []rune(input)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 && unicode.IsUpper(r) {
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// LowerCamel returns input in lowerCamelCase: "Shopper Customers",
// "shopper-customers" and "shopperCustomers" all give "shopperCustomers".
func LowerCamel(input string) string {
	var b strings.Builder
	for i, w := range Words(input) {
		if i == 0 {
			b.WriteString(strings.ToLower(w))
			continue
		}
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// UpperCamel returns input in UpperCamelCase, suitable for type names.
func UpperCamel(input string) string {
	var b strings.Builder
	for _, w := range Words(input) {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// Identifier returns a name usable as a TypeScript identifier. Invalid
// runes become underscores and a leading digit is prefixed with one.
func Identifier(input string) string {
	if input == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range input {
		switch {
		case r == '_' || r == '$':
			b.WriteRune(r)
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsDigit(r):
			if i == 0 {
				b.WriteRune('_')
			}
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func capitalize(w string) string {
	runes := []rune(strings.ToLower(w))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// OperationID derives an operation id from its method and path:
// "get" and "/customers/{customerId}" give "getCustomersCustomerId".
func OperationID(method, path string) string {
	return LowerCamel(method + " " + path)
}

// OperationIDs assigns every operation of api an id that is unique within
// the API. Operations whose derived ids collide keep the first one in
// declaration order; the others get the lowest free numeric suffix, so
// "/order-items" and "/order_items" give getOrderItems and getOrderItems2.
func OperationIDs(api *model.WebAPI) map[*model.Operation]string {
	ids := map[*model.Operation]string{}
	if api == nil {
		return ids
	}
	taken := map[string]bool{}
	type dup struct {
		op   *model.Operation
		base string
	}
	var dups []dup
	for _, ep := range api.EndPoints {
		for _, op := range ep.Operations {
			id := OperationID(op.Method, ep.Path)
			if taken[id] {
				dups = append(dups, dup{op, id})
				continue
			}
			taken[id] = true
			ids[op] = id
		}
	}
	for _, d := range dups {
		for n := 2; ; n++ {
			id := d.base + strconv.Itoa(n)
			if !taken[id] {
				taken[id] = true
				ids[d.op] = id
				break
			}
		}
	}
	return ids
}
