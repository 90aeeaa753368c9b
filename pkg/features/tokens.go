package features

import "sort"

// TokenSet is an unordered set of normalized name tokens.
type TokenSet map[string]struct{}

func NewTokenSet(tokens ...string) TokenSet {
	s := make(TokenSet, len(tokens))
	for _, t := range tokens {
		s[t] = struct{}{}
	}
	return s
}

func (s TokenSet) Has(token string) bool {
	_, ok := s[token]
	return ok
}

func (s TokenSet) Len() int {
	return len(s)
}

// Sorted returns the tokens in lexical order.
func (s TokenSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IntersectionLen counts tokens present in both sets.
func (s TokenSet) IntersectionLen(other TokenSet) int {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for t := range small {
		if large.Has(t) {
			n++
		}
	}
	return n
}

func (s TokenSet) Intersect(other TokenSet) TokenSet {
	out := make(TokenSet)
	for t := range s {
		if other.Has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// Minus returns the tokens of s that are not in other.
func (s TokenSet) Minus(other TokenSet) TokenSet {
	out := make(TokenSet, len(s))
	for t := range s {
		if !other.Has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// SubsetOf reports whether every token of s is in other.
func (s TokenSet) SubsetOf(other TokenSet) bool {
	if len(s) > len(other) {
		return false
	}
	for t := range s {
		if !other.Has(t) {
			return false
		}
	}
	return true
}

func (s TokenSet) Equal(other TokenSet) bool {
	return len(s) == len(other) && s.SubsetOf(other)
}
