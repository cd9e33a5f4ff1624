package util

type Set[T comparable] map[T]struct{}

// Add reports whether v was not in the set yet.
func (s *Set[T]) Add(v T) bool {
	if *s == nil {
		*s = map[T]struct{}{}
	}
	if _, ok := (*s)[v]; ok {
		return false
	}
	(*s)[v] = struct{}{}
	return true
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}
