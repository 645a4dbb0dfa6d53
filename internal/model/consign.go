package model

import (
	"fmt"
	"sort"
)

type Consign struct {
	Brand string  `json:"brand"`
	Name  string  `json:"name"`
	ID    int     `json:"id"`
	Sizes SizeSet `json:"sizes"`
	Image string  `json:"image"`
}

// Key identifies a consignment slot; sizes are the changing part.
func (c Consign) Key() int {
	return c.ID
}

func (c Consign) String() string {
	return fmt.Sprintf("Consign(id=%d, sizes=%v)", c.ID, c.Sizes.Slice())
}

// Snapshot is one poll's worth of consignment slots keyed by ID.
type Snapshot map[int]Consign

func NewSnapshot(consigns ...Consign) Snapshot {
	s := make(Snapshot, len(consigns))
	for _, c := range consigns {
		s[c.ID] = c
	}
	return s
}

// IDs returns the slot IDs in ascending order.
func (s Snapshot) IDs() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
