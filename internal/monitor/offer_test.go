package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourneighborhoodchef/sellbot/internal/client"
	"github.com/yourneighborhoodchef/sellbot/internal/logging"
	"github.com/yourneighborhoodchef/sellbot/internal/metrics"
	"github.com/yourneighborhoodchef/sellbot/internal/notify"
	"github.com/yourneighborhoodchef/sellbot/internal/seen"
)

const offersBody = `{"results":[
	{"id":"of-90","name":"Dunk Low","variantId":11,"sku":"DD1391","brand":"Nike","image":"img","europeanSize":"42","listingPrice":100,"price":90,"createTime":"2024-01-01"},
	{"id":"of-89","name":"Dunk Low","variantId":12,"sku":"DD1391","brand":"Nike","image":"img","europeanSize":"43","listingPrice":"100","price":"89","createTime":"2024-01-01"}
]}`

func newOfferMonitor(s *fakeSeller, n Notifier, policy OfferPolicy) (*OfferMonitor, *metrics.Metrics) {
	m := metrics.Nop()
	return NewOfferMonitor(s, n, OfferOptions{Policy: policy}, m, logging.Discard()), m
}

func TestOfferMonitor_AcceptanceBoundary(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	s.on(http.MethodGet, testEndpoints.Offers(), static(http.StatusOK, offersBody))
	s.on(http.MethodPost, testEndpoints.Offers(), static(http.StatusCreated, `{}`))
	n := &recordingNotifier{}
	mon, m := newOfferMonitor(s, n, PolicyFirstSight)

	mon.Poll(context.Background())

	posts := s.sent(http.MethodPost, testEndpoints.Offers())
	require.Len(t, posts, 2)
	assert.Equal(t, offerDecision{Name: "of-90", Status: "ACCEPTED", VariantID: 11}, posts[0].JSON)
	assert.Equal(t, offerDecision{Name: "of-89", Status: "REFUSED_PRICE_DISAGREEMENT", NewListingPrice: 100, VariantID: 12}, posts[1].JSON)

	assert.Equal(t, []notify.Kind{
		notify.KindOfferAccepted, notify.KindOfferSeen,
		notify.KindOfferRefused, notify.KindOfferSeen,
	}, n.kinds())
	assert.Equal(t, "jane@example.com", n.all()[0].Account)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OfferDecisions.WithLabelValues("accepted", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OfferDecisions.WithLabelValues("refused", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Polls.WithLabelValues("offers", "ok")))
}

func TestOfferMonitor_GetSendsPageSize(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	s.on(http.MethodGet, testEndpoints.Offers(), static(http.StatusOK, `{"results":[]}`))
	mon, _ := newOfferMonitor(s, &recordingNotifier{}, PolicyFirstSight)

	mon.Poll(context.Background())

	gets := s.sent(http.MethodGet, testEndpoints.Offers())
	require.Len(t, gets, 1)
	assert.Equal(t, "100", gets[0].Query.Get("take"))
}

func TestOfferMonitor_Policies(t *testing.T) {
	tests := []struct {
		policy    OfferPolicy
		wantPosts int
		wantSeen  int
	}{
		{PolicyFirstSight, 2, 2},
		{PolicyEveryPoll, 6, 6},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			s := newFakeSeller("jane@example.com")
			s.on(http.MethodGet, testEndpoints.Offers(), static(http.StatusOK, offersBody))
			s.on(http.MethodPost, testEndpoints.Offers(), static(http.StatusCreated, `{}`))
			n := &recordingNotifier{}
			mon, _ := newOfferMonitor(s, n, tt.policy)

			for i := 0; i < 3; i++ {
				mon.Poll(context.Background())
			}

			assert.Len(t, s.sent(http.MethodPost, testEndpoints.Offers()), tt.wantPosts)
			seen := 0
			for _, k := range n.kinds() {
				if k == notify.KindOfferSeen {
					seen++
				}
			}
			assert.Equal(t, tt.wantSeen, seen)
		})
	}
}

func TestOfferMonitor_SharedSeenStoreDecidesOnce(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	s.on(http.MethodGet, testEndpoints.Offers(), static(http.StatusOK, offersBody))
	s.on(http.MethodPost, testEndpoints.Offers(), static(http.StatusCreated, `{}`))
	n := &recordingNotifier{}
	store := seen.NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		mon := NewOfferMonitor(s, n, OfferOptions{Policy: PolicyFirstSight, Seen: store}, metrics.Nop(), logging.Discard())
		wg.Add(1)
		go func() {
			defer wg.Done()
			mon.Poll(context.Background())
		}()
	}
	wg.Wait()

	assert.Len(t, s.sent(http.MethodPost, testEndpoints.Offers()), 2)
	assert.Equal(t, 2, store.Len())
}

func TestOfferMonitor_RejectedDecisionStillNotifiesSeen(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	s.on(http.MethodGet, testEndpoints.Offers(), static(http.StatusOK, offersBody))
	s.on(http.MethodPost, testEndpoints.Offers(), static(http.StatusBadRequest, `{"message":"nope"}`))
	n := &recordingNotifier{}
	mon, m := newOfferMonitor(s, n, PolicyFirstSight)

	mon.Poll(context.Background())
	mon.Poll(context.Background())

	assert.Equal(t, []notify.Kind{notify.KindOfferSeen, notify.KindOfferSeen}, n.kinds())
	assert.Len(t, s.sent(http.MethodPost, testEndpoints.Offers()), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OfferDecisions.WithLabelValues("accepted", "rejected")))
}

func TestOfferMonitor_UnauthorizedRefreshesOnce(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	s.on(http.MethodGet, testEndpoints.Offers(), sequence(
		static(http.StatusUnauthorized, `{}`),
		static(http.StatusOK, offersBody),
	))
	s.on(http.MethodPost, testEndpoints.Offers(), static(http.StatusCreated, `{}`))
	n := &recordingNotifier{}
	mon, m := newOfferMonitor(s, n, PolicyFirstSight)

	mon.Poll(context.Background())
	assert.Equal(t, 1, s.refreshCount())
	assert.Empty(t, s.sent(http.MethodPost, testEndpoints.Offers()))

	mon.Poll(context.Background())
	assert.Equal(t, 1, s.refreshCount())
	assert.Len(t, s.sent(http.MethodPost, testEndpoints.Offers()), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues("ok")))
}

func TestOfferMonitor_RunSurvivesFailures(t *testing.T) {
	s := newFakeSeller("jane@example.com")
	s.on(http.MethodGet, testEndpoints.Offers(), sequence(
		static(http.StatusUnauthorized, `{}`),
		func(*client.Request) (*client.Response, error) {
			return nil, fmt.Errorf("%w: Client.Timeout exceeded", client.ErrTimeout)
		},
		static(http.StatusInternalServerError, `oops`),
		static(http.StatusOK, `not json`),
		static(http.StatusOK, `{"results":[]}`),
	))
	m := metrics.Nop()
	mon := NewOfferMonitor(s, &recordingNotifier{}, OfferOptions{Delay: time.Millisecond}, m, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(s.sent(http.MethodGet, testEndpoints.Offers())) >= 6
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	assert.Equal(t, 1, s.refreshCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Polls.WithLabelValues("offers", "transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Polls.WithLabelValues("offers", "rejected")))
}
