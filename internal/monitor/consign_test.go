package monitor

import (
	"context"
	"fmt"
	"strings"
	"testing"

	http "github.com/bogdanfinn/fhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourneighborhoodchef/sellbot/internal/logging"
	"github.com/yourneighborhoodchef/sellbot/internal/metrics"
	"github.com/yourneighborhoodchef/sellbot/internal/model"
	"github.com/yourneighborhoodchef/sellbot/internal/notify"
)

func slot(id int, sizes ...string) model.Consign {
	return model.Consign{Brand: "Nike", Name: fmt.Sprintf("Slot %d", id), ID: id, Sizes: model.NewSizeSet(sizes...), Image: "img"}
}

func slotsBody(consigns ...model.Consign) string {
	parts := make([]string, 0, len(consigns))
	for _, c := range consigns {
		parts = append(parts, fmt.Sprintf(`{"brand":%q,"name":%q,"id":%d,"sizes":["%s"],"image":%q}`,
			c.Brand, c.Name, c.ID, strings.Join(c.Sizes.Slice(), `","`), c.Image))
	}
	return `{"results":[` + strings.Join(parts, ",") + `]}`
}

func TestDiffSnapshots_AddedAndRemovedReconstructCurrent(t *testing.T) {
	cases := []struct{ prev, curr model.SizeSet }{
		{model.NewSizeSet("42", "43"), model.NewSizeSet("42", "43", "44")},
		{model.NewSizeSet("42", "43"), model.NewSizeSet("44")},
		{model.NewSizeSet("40"), model.NewSizeSet()},
		{model.NewSizeSet("38", "39", "40"), model.NewSizeSet("39", "41")},
	}
	for _, tc := range cases {
		changes := DiffSnapshots(
			model.NewSnapshot(model.Consign{ID: 1, Sizes: tc.prev}),
			model.NewSnapshot(model.Consign{ID: 1, Sizes: tc.curr}),
		)
		require.Len(t, changes, 1)
		ch := changes[0]
		assert.Equal(t, ConsignResized, ch.Kind)

		for size := range ch.Added {
			assert.False(t, ch.Removed.Has(size), "size %s both added and removed", size)
		}
		rebuilt := tc.prev.Minus(ch.Removed)
		for size := range ch.Added {
			rebuilt[size] = struct{}{}
		}
		assert.True(t, rebuilt.Equal(tc.curr), "rebuilt %v, want %v", rebuilt.Slice(), tc.curr.Slice())
	}
}

func TestDiffSnapshots_UnchangedIsEmpty(t *testing.T) {
	snap := model.NewSnapshot(slot(1, "42"), slot(2, "43", "44"))
	assert.Empty(t, DiffSnapshots(snap, snap))
	assert.Empty(t, DiffSnapshots(snap, model.NewSnapshot(slot(2, "44", "43"), slot(1, "42"))))
}

func TestDiffSnapshots_NewAndGone(t *testing.T) {
	changes := DiffSnapshots(
		model.NewSnapshot(slot(7, "40")),
		model.NewSnapshot(slot(9, "41", "42")),
	)
	require.Len(t, changes, 2)

	assert.Equal(t, ConsignNew, changes[0].Kind)
	assert.Equal(t, 9, changes[0].Consign.ID)
	assert.Equal(t, []string{"41", "42"}, changes[0].Added.Slice())

	assert.Equal(t, ConsignGone, changes[1].Kind)
	assert.Equal(t, 7, changes[1].Consign.ID)
	assert.Equal(t, []string{"40"}, changes[1].Removed.Slice())
	assert.Empty(t, changes[1].Added)
}

type addedCall struct {
	id    int
	sizes []string
}

func newConsignMonitor(s *fakeSeller, bodies ...string) (*ConsignMonitor, *[]addedCall, *metrics.Metrics) {
	routes := make([]route, 0, len(bodies))
	for _, b := range bodies {
		routes = append(routes, static(http.StatusOK, b))
	}
	s.on(http.MethodGet, testEndpoints.ConsignmentSlots(), sequence(routes...))

	var calls []addedCall
	h := SizeHandlerFunc(func(_ context.Context, c model.Consign, sizes []string) {
		calls = append(calls, addedCall{c.ID, sizes})
	})
	m := metrics.Nop()
	return NewConsignMonitor(s, h, ConsignOptions{}, m, logging.Discard()), &calls, m
}

func TestConsignMonitor_FirstPollIsBaseline(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	mon, calls, _ := newConsignMonitor(s, slotsBody(slot(1, "42"), slot(2, "43")))

	mon.Poll(context.Background())

	assert.Empty(t, *calls)
	assert.Len(t, mon.Snapshot(), 2)
}

func TestConsignMonitor_RequestParameters(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	mon, _, _ := newConsignMonitor(s, slotsBody(slot(1, "42")))

	mon.Poll(context.Background())
	mon.Poll(context.Background())

	gets := s.sent(http.MethodGet, testEndpoints.ConsignmentSlots())
	require.Len(t, gets, 2)
	assert.Equal(t, "100", gets[0].Query.Get("take"))
	assert.NotEmpty(t, gets[0].Query.Get("nocache"))
	assert.NotEqual(t, gets[0].Query.Get("nocache"), gets[1].Query.Get("nocache"))
}

func TestConsignMonitor_SizeAdded(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	mon, calls, m := newConsignMonitor(s,
		slotsBody(slot(42, "42", "43")),
		slotsBody(slot(42, "42", "43", "44")),
	)

	mon.Poll(context.Background())
	mon.Poll(context.Background())

	require.Len(t, *calls, 1)
	assert.Equal(t, addedCall{42, []string{"44"}}, (*calls)[0])
	assert.Equal(t, []string{"42", "43", "44"}, mon.Snapshot()[42].Sizes.Slice())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SizesAdded))

	mon.Poll(context.Background())
	assert.Len(t, *calls, 1, "unchanged snapshot must not notify again")
}

func TestConsignMonitor_RemovalIsSilent(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	mon, calls, _ := newConsignMonitor(s,
		slotsBody(slot(7, "40"), slot(8, "41", "42")),
		slotsBody(slot(8, "41")),
	)

	mon.Poll(context.Background())
	mon.Poll(context.Background())

	assert.Empty(t, *calls)
	snap := mon.Snapshot()
	assert.NotContains(t, snap, 7)
	assert.Equal(t, []string{"41"}, snap[8].Sizes.Slice())
}

func TestConsignMonitor_NewSlotHandsAllSizes(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	mon, calls, _ := newConsignMonitor(s,
		slotsBody(slot(1, "40")),
		slotsBody(slot(1, "40"), slot(3, "44", "45")),
	)

	mon.Poll(context.Background())
	mon.Poll(context.Background())

	require.Len(t, *calls, 1)
	assert.Equal(t, addedCall{3, []string{"44", "45"}}, (*calls)[0])
}

func TestConsignMonitor_FailedPollKeepsState(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	s.on(http.MethodGet, testEndpoints.ConsignmentSlots(), sequence(
		static(http.StatusUnauthorized, `{}`),
		static(http.StatusOK, slotsBody(slot(1, "40"))),
		static(http.StatusBadGateway, `bad gateway`),
		static(http.StatusOK, slotsBody(slot(1, "40", "41"))),
	))
	var calls []addedCall
	mon := NewConsignMonitor(s, SizeHandlerFunc(func(_ context.Context, c model.Consign, sizes []string) {
		calls = append(calls, addedCall{c.ID, sizes})
	}), ConsignOptions{}, metrics.Nop(), logging.Discard())

	mon.Poll(context.Background())
	assert.Equal(t, 1, s.refreshCount())
	assert.Empty(t, mon.Snapshot())

	mon.Poll(context.Background())
	mon.Poll(context.Background())
	mon.Poll(context.Background())

	require.Len(t, calls, 1)
	assert.Equal(t, addedCall{1, []string{"41"}}, calls[0])
}

func TestNotifyOnly(t *testing.T) {
	n := &recordingNotifier{}
	NotifyOnly("jane@example.com", n).SizesAdded(context.Background(), slot(5, "42"), []string{"42"})

	events := n.all()
	require.Len(t, events, 1)
	assert.Equal(t, notify.KindConsignSizeAdded, events[0].Kind)
	assert.Equal(t, []string{"42"}, events[0].Sizes)
	assert.Equal(t, 5, events[0].Consign.ID)
}
