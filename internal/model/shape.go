package model

// BaseType returns the built-in type a shape ultimately derives from,
// following parent links. Unresolved references report "any".
func (s *Shape) BaseType() string {
	seen := map[*Shape]bool{}
	for s != nil && !seen[s] {
		seen[s] = true
		if IsBuiltinType(s.Type) {
			return s.Type
		}
		if len(s.Properties) > 0 && s.Link == nil {
			return "object"
		}
		s = s.Link
	}
	return "any"
}

// EffectiveProperties returns the properties of an object shape including
// those inherited from its parents. Properties declared closer to s win.
func (s *Shape) EffectiveProperties() []*Property {
	return effectiveProperties(s, map[*Shape]bool{})
}

func effectiveProperties(s *Shape, seen map[*Shape]bool) []*Property {
	if s == nil || seen[s] {
		return nil
	}
	seen[s] = true
	var out []*Property
	index := map[string]int{}
	for _, parent := range s.Parents {
		for _, p := range effectiveProperties(parent, seen) {
			if i, ok := index[p.Name]; ok {
				out[i] = p
				continue
			}
			index[p.Name] = len(out)
			out = append(out, p)
		}
	}
	for _, p := range s.Properties {
		if i, ok := index[p.Name]; ok {
			out[i] = p
			continue
		}
		index[p.Name] = len(out)
		out = append(out, p)
	}
	return out
}

// ItemShape returns the items of an array shape, following parent links.
func (s *Shape) ItemShape() *Shape {
	seen := map[*Shape]bool{}
	for s != nil && !seen[s] {
		seen[s] = true
		if s.Items != nil {
			return s.Items
		}
		s = s.Link
	}
	return nil
}

// Variants returns the members of a union shape, following parent links.
func (s *Shape) Variants() []*Shape {
	seen := map[*Shape]bool{}
	for s != nil && !seen[s] {
		seen[s] = true
		if len(s.AnyOf) > 0 {
			return s.AnyOf
		}
		s = s.Link
	}
	return nil
}

// IsReference reports whether s only points at another type without adding
// facets of its own.
func (s *Shape) IsReference() bool {
	return s != nil && s.Link != nil && len(s.Parents) <= 1 && len(s.Properties) == 0 &&
		s.Items == nil && len(s.AnyOf) == 0 && len(s.Enum) == 0 && s.Pattern == "" &&
		s.MinLength == nil && s.MaxLength == nil && s.Minimum == nil && s.Maximum == nil
}

// LookupFacet returns the first facet value set on s or on one of the
// shapes it links to.
func LookupFacet[T any](s *Shape, get func(*Shape) (T, bool)) (T, bool) {
	seen := map[*Shape]bool{}
	for cur := s; cur != nil && !seen[cur]; cur = cur.Link {
		seen[cur] = true
		if v, ok := get(cur); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
