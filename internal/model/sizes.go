package model

import (
	"encoding/json"
	"sort"
)

// SizeSet is the set of size labels a consignment slot currently accepts.
type SizeSet map[string]struct{}

func NewSizeSet(sizes ...string) SizeSet {
	s := make(SizeSet, len(sizes))
	for _, size := range sizes {
		s[size] = struct{}{}
	}
	return s
}

func (s SizeSet) Has(size string) bool {
	_, ok := s[size]
	return ok
}

func (s SizeSet) Equal(o SizeSet) bool {
	if len(s) != len(o) {
		return false
	}
	for size := range s {
		if !o.Has(size) {
			return false
		}
	}
	return true
}

// Minus returns the sizes of s that are not in o.
func (s SizeSet) Minus(o SizeSet) SizeSet {
	out := SizeSet{}
	for size := range s {
		if !o.Has(size) {
			out[size] = struct{}{}
		}
	}
	return out
}

// Slice returns the sizes in sorted order.
func (s SizeSet) Slice() []string {
	out := make([]string, 0, len(s))
	for size := range s {
		out = append(out, size)
	}
	sort.Strings(out)
	return out
}

// DiffSizes returns what appeared in curr and what disappeared from prev.
func DiffSizes(prev, curr SizeSet) (added, removed SizeSet) {
	return curr.Minus(prev), prev.Minus(curr)
}

func (s SizeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *SizeSet) UnmarshalJSON(data []byte) error {
	var sizes []string
	if err := json.Unmarshal(data, &sizes); err != nil {
		return err
	}
	*s = NewSizeSet(sizes...)
	return nil
}
