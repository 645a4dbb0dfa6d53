package model

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffer_KeyIgnoresPrices(t *testing.T) {
	a := Offer{ID: "off-1", Price: 90, ListingPrice: 100}
	b := Offer{ID: "off-1", Price: 120, ListingPrice: 150}
	c := Offer{ID: "off-2", Price: 90, ListingPrice: 100}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())

	seen := map[string]Offer{a.Key(): a}
	_, dup := seen[b.Key()]
	assert.True(t, dup)
}

func TestOffer_AcceptableBoundary(t *testing.T) {
	assert.True(t, Offer{ListingPrice: 100, Price: 90}.Acceptable(10))
	assert.False(t, Offer{ListingPrice: 100, Price: 89}.Acceptable(10))
	assert.True(t, Offer{ListingPrice: 100, Price: 100}.Acceptable(0))
}

func TestOffer_DecodeNormalisesPrices(t *testing.T) {
	var o Offer
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "abc", "name": "Dunk Low", "variantId": 77, "sku": "DD1391-100",
		"brand": "Nike", "image": "https://img", "europeanSize": "42",
		"listingPrice": "150", "price": 139.9, "createTime": "2024-01-02T10:00:00Z"
	}`), &o))

	assert.Equal(t, Price(150), o.ListingPrice)
	assert.Equal(t, Price(139), o.Price)
	assert.Equal(t, 77, o.VariantID)
	assert.Equal(t, "42", o.Size)

	var p Price
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &p))
	require.NoError(t, json.Unmarshal([]byte(`null`), &p))
	assert.Equal(t, Price(0), p)
}

func TestPrice_RejectsUnrepresentable(t *testing.T) {
	for _, raw := range []string{`"NaN"`, `"Inf"`, `"-Infinity"`, `1e300`, `"-1e300"`} {
		t.Run(raw, func(t *testing.T) {
			p := Price(7)
			assert.Error(t, json.Unmarshal([]byte(raw), &p))
			assert.Equal(t, Price(7), p)
		})
	}
}

func TestDiffSizes_ReconstructsCurrent(t *testing.T) {
	tests := []struct {
		name       string
		prev, curr SizeSet
	}{
		{"added", NewSizeSet("42", "43"), NewSizeSet("42", "43", "44")},
		{"removed", NewSizeSet("42", "43"), NewSizeSet("43")},
		{"both", NewSizeSet("40", "41"), NewSizeSet("41", "45")},
		{"from empty", NewSizeSet(), NewSizeSet("38")},
		{"unchanged", NewSizeSet("42"), NewSizeSet("42")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, removed := DiffSizes(tt.prev, tt.curr)

			for size := range added {
				assert.False(t, removed.Has(size), "added and removed must be disjoint")
			}

			rebuilt := NewSizeSet(tt.prev.Minus(removed).Slice()...)
			for size := range added {
				rebuilt[size] = struct{}{}
			}
			assert.True(t, rebuilt.Equal(tt.curr))
		})
	}
}

func TestDiffSizes_Scenario(t *testing.T) {
	added, removed := DiffSizes(NewSizeSet("42", "43"), NewSizeSet("42", "43", "44"))
	assert.Equal(t, []string{"44"}, added.Slice())
	assert.Empty(t, removed)
}

func TestConsign_Decode(t *testing.T) {
	var c Consign
	require.NoError(t, json.Unmarshal([]byte(`{"brand":"Nike","name":"Dunk","id":42,"sizes":["43","42","43"],"image":"i"}`), &c))
	assert.Equal(t, 42, c.Key())
	assert.Equal(t, []string{"42", "43"}, c.Sizes.Slice())

	out, err := json.Marshal(c.Sizes)
	require.NoError(t, err)
	assert.JSONEq(t, `["42","43"]`, string(out))
}

func TestListing(t *testing.T) {
	l := NewListing([]Product{
		{ID: "L1", Name: "Dunk", Size: "42", Price: 150},
		{ID: "L2", Name: "Dunk", Size: "43", Price: 160},
	})

	p, ok := l.Find(ProductKey{Name: "Dunk", Size: "43"})
	require.True(t, ok)
	assert.Equal(t, "L2", p.ID)

	_, ok = l.Find(ProductKey{Name: "Dunk", Size: "44"})
	assert.False(t, ok)

	taken, ok := l.Take(ProductKey{Name: "Dunk", Size: "43"})
	require.True(t, ok)
	assert.Equal(t, "L2", taken.ID)
	_, ok = l.Take(ProductKey{Name: "Dunk", Size: "43"})
	assert.False(t, ok)
	assert.Equal(t, 1, l.Len())

	l.Restore(taken)
	l.Restore(taken)
	assert.Equal(t, 2, l.Len())

	l.Replace(nil)
	assert.Empty(t, l.Products())
}

func TestSnapshot_IDsSorted(t *testing.T) {
	s := NewSnapshot(Consign{ID: 9}, Consign{ID: 2}, Consign{ID: 5})
	assert.Equal(t, []int{2, 5, 9}, s.IDs())
}

func TestListing_TakeIsExclusive(t *testing.T) {
	l := NewListing([]Product{{ID: "L1", Name: "Dunk", Size: "42"}})

	var (
		wg  sync.WaitGroup
		won atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := l.Take(ProductKey{Name: "Dunk", Size: "42"}); ok {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
	assert.Zero(t, l.Len())
}
