package monitor

import (
	"context"
	"fmt"
	"net/url"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/sirupsen/logrus"

	"github.com/yourneighborhoodchef/sellbot/internal/client"
	"github.com/yourneighborhoodchef/sellbot/internal/logging"
	"github.com/yourneighborhoodchef/sellbot/internal/metrics"
	"github.com/yourneighborhoodchef/sellbot/internal/model"
	"github.com/yourneighborhoodchef/sellbot/internal/notify"
	"github.com/yourneighborhoodchef/sellbot/internal/seen"
	"github.com/yourneighborhoodchef/sellbot/internal/seller"
)

// OfferPolicy decides which offers of a poll are evaluated.
type OfferPolicy string

const (
	// PolicyFirstSight evaluates an offer the first time it shows up only.
	PolicyFirstSight OfferPolicy = "first_sight"
	// PolicyEveryPoll evaluates and notifies every offer on every poll.
	PolicyEveryPoll OfferPolicy = "every_poll"
)

const (
	statusAccepted = "ACCEPTED"
	statusRefused  = "REFUSED_PRICE_DISAGREEMENT"
)

type offerDecision struct {
	Name            string `json:"name"`
	Status          string `json:"status"`
	NewListingPrice int    `json:"newListingPrice,omitempty"`
	VariantID       int    `json:"variantId"`
}

type offersPage struct {
	Results []model.Offer `json:"results"`
}

type OfferOptions struct {
	Delay  time.Duration
	Policy OfferPolicy
	// Seen defaults to an in-memory store.
	Seen seen.Store
}

// OfferMonitor accepts or refuses incoming purchase offers on the account's
// listings.
type OfferMonitor struct {
	poller
	policy   OfferPolicy
	seen     seen.Store
	notifier Notifier
}

func NewOfferMonitor(s Seller, n Notifier, opts OfferOptions, m *metrics.Metrics, log *logrus.Logger) *OfferMonitor {
	if opts.Policy == "" {
		opts.Policy = PolicyFirstSight
	}
	if opts.Seen == nil {
		opts.Seen = seen.NewMemory()
	}
	return &OfferMonitor{
		poller: poller{
			loop:    "offers",
			seller:  s,
			delay:   opts.Delay,
			metrics: m,
			log:     logging.Component(log, "offers").WithField("account", s.Account().Email),
		},
		policy:   opts.Policy,
		seen:     opts.Seen,
		notifier: n,
	}
}

// Run polls until ctx is cancelled.
func (m *OfferMonitor) Run(ctx context.Context) error {
	return m.run(ctx, m.Poll)
}

// Poll runs a single poll cycle.
func (m *OfferMonitor) Poll(ctx context.Context) {
	resp, ok := m.fetch(ctx, &client.Request{
		Method: http.MethodGet,
		URL:    m.seller.Endpoints().Offers(),
		Query:  url.Values{"take": {pageSize}},
	})
	if !ok {
		return
	}

	var page offersPage
	if err := resp.Decode(&page); err != nil {
		m.log.WithError(err).Error("decode offers")
		return
	}
	if len(page.Results) == 0 {
		m.log.Debug("no new offers, monitoring")
		return
	}

	for _, offer := range page.Results {
		if ctx.Err() != nil {
			return
		}
		m.handle(ctx, offer)
	}
}

func (m *OfferMonitor) handle(ctx context.Context, offer model.Offer) {
	log := m.log.WithField("offer", offer.ID)

	if m.policy == PolicyFirstSight {
		fresh, err := m.seen.MarkIfNew(ctx, offer.Key())
		if err != nil {
			log.WithError(err).Error("seen store update failed, skipping offer")
			return
		}
		if !fresh {
			return
		}
	}
	log.Infof("offer found: %s", offer)

	account := m.seller.Account()
	if offer.Acceptable(account.PriceDelta) {
		if m.decide(ctx, log, offer, offerDecision{Name: offer.ID, Status: statusAccepted, VariantID: offer.VariantID}) {
			m.notifier.Notify(notify.OfferAccepted(account.Email, offer))
		}
	} else {
		if m.decide(ctx, log, offer, offerDecision{
			Name:            offer.ID,
			Status:          statusRefused,
			NewListingPrice: int(offer.ListingPrice),
			VariantID:       offer.VariantID,
		}) {
			m.notifier.Notify(notify.OfferRefused(account.Email, offer))
		}
	}
	m.notifier.Notify(notify.OfferSeen(account.Email, offer))

	if m.policy != PolicyFirstSight {
		if err := m.seen.Mark(ctx, offer.Key()); err != nil {
			log.WithError(err).Error("seen store update failed")
		}
	}
}

// decide posts the decision and reports whether the marketplace took it.
func (m *OfferMonitor) decide(ctx context.Context, log *logrus.Entry, offer model.Offer, d offerDecision) bool {
	decision := "accepted"
	if d.Status == statusRefused {
		decision = "refused"
	}
	log = log.WithField("decision", decision)
	log.Info("posting offer decision")

	resp, err := m.seller.Do(ctx, &client.Request{
		Method: http.MethodPost,
		URL:    m.seller.Endpoints().Offers(),
		JSON:   d,
	})
	if err != nil {
		m.metrics.OfferDecisions.WithLabelValues(decision, "error").Inc()
		seller.LogFailure(log, err, fmt.Sprintf("post decision for %s failed", offer.ID))
		return false
	}
	if resp.StatusCode != http.StatusCreated {
		m.metrics.OfferDecisions.WithLabelValues(decision, "rejected").Inc()
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   client.Sample(resp.Body),
		}).Error("offer decision rejected")
		return false
	}

	m.metrics.OfferDecisions.WithLabelValues(decision, "ok").Inc()
	log.Infof("offer %s %s", offer.ID, decision)
	return true
}
