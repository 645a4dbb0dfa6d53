package monitor

import "github.com/yourneighborhoodchef/sellbot/internal/model"

type ChangeKind int

const (
	// ConsignNew is a slot that was not in the previous snapshot.
	ConsignNew ChangeKind = iota
	// ConsignResized is a slot whose size set changed.
	ConsignResized
	// ConsignGone is a slot that disappeared.
	ConsignGone
)

func (k ChangeKind) String() string {
	switch k {
	case ConsignNew:
		return "new"
	case ConsignResized:
		return "resized"
	case ConsignGone:
		return "gone"
	}
	return "unknown"
}

// ConsignChange is one difference between two snapshots. For a new slot Added
// holds all its sizes; for a gone slot Removed does.
type ConsignChange struct {
	Kind    ChangeKind
	Consign model.Consign
	Added   model.SizeSet
	Removed model.SizeSet
}

// DiffSnapshots lists what changed from prev to curr, ordered by slot ID.
// Slots whose sizes did not change are left out.
func DiffSnapshots(prev, curr model.Snapshot) []ConsignChange {
	var changes []ConsignChange

	for _, id := range curr.IDs() {
		c := curr[id]
		old, ok := prev[id]
		if !ok {
			changes = append(changes, ConsignChange{
				Kind:    ConsignNew,
				Consign: c,
				Added:   model.NewSizeSet(c.Sizes.Slice()...),
				Removed: model.SizeSet{},
			})
			continue
		}
		if old.Sizes.Equal(c.Sizes) {
			continue
		}
		added, removed := model.DiffSizes(old.Sizes, c.Sizes)
		changes = append(changes, ConsignChange{
			Kind:    ConsignResized,
			Consign: c,
			Added:   added,
			Removed: removed,
		})
	}

	for _, id := range prev.IDs() {
		if _, ok := curr[id]; ok {
			continue
		}
		old := prev[id]
		changes = append(changes, ConsignChange{
			Kind:    ConsignGone,
			Consign: old,
			Added:   model.SizeSet{},
			Removed: model.NewSizeSet(old.Sizes.Slice()...),
		})
	}

	return changes
}
