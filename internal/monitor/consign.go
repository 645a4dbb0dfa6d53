package monitor

import (
	"context"
	"math/rand"
	"net/url"
	"strconv"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/sirupsen/logrus"

	"github.com/yourneighborhoodchef/sellbot/internal/client"
	"github.com/yourneighborhoodchef/sellbot/internal/logging"
	"github.com/yourneighborhoodchef/sellbot/internal/metrics"
	"github.com/yourneighborhoodchef/sellbot/internal/model"
	"github.com/yourneighborhoodchef/sellbot/internal/notify"
)

// SizeHandler reacts to sizes that became available on a consignment slot.
type SizeHandler interface {
	SizesAdded(ctx context.Context, c model.Consign, sizes []string)
}

type SizeHandlerFunc func(ctx context.Context, c model.Consign, sizes []string)

func (f SizeHandlerFunc) SizesAdded(ctx context.Context, c model.Consign, sizes []string) {
	f(ctx, c, sizes)
}

// NotifyOnly reports new sizes to the monitor webhook.
func NotifyOnly(account string, n Notifier) SizeHandler {
	return SizeHandlerFunc(func(_ context.Context, c model.Consign, sizes []string) {
		n.Notify(notify.ConsignSizeAdded(account, c, sizes))
	})
}

// NotifyAndPlace reports new sizes, then tries to consign them.
func NotifyAndPlace(account string, n Notifier, p *Placer) SizeHandler {
	return SizeHandlerFunc(func(ctx context.Context, c model.Consign, sizes []string) {
		n.Notify(notify.ConsignSizeAdded(account, c, sizes))
		p.Place(ctx, c, sizes)
	})
}

type consignsPage struct {
	Results []model.Consign `json:"results"`
}

type ConsignOptions struct {
	Delay time.Duration
}

// ConsignMonitor watches the consignment slots and hands every size that
// opens up to its SizeHandler.
type ConsignMonitor struct {
	poller
	handler SizeHandler

	mu     sync.Mutex
	prev   model.Snapshot
	primed bool
}

func NewConsignMonitor(s Seller, h SizeHandler, opts ConsignOptions, m *metrics.Metrics, log *logrus.Logger) *ConsignMonitor {
	return &ConsignMonitor{
		poller: poller{
			loop:    "consigns",
			seller:  s,
			delay:   opts.Delay,
			metrics: m,
			log:     logging.Component(log, "consigns").WithField("account", s.Account().Email),
		},
		handler: h,
		prev:    model.Snapshot{},
	}
}

// Run polls until ctx is cancelled. The first successful poll only records a
// baseline.
func (m *ConsignMonitor) Run(ctx context.Context) error {
	m.mu.Lock()
	m.primed = false
	m.mu.Unlock()
	return m.run(ctx, m.Poll)
}

// Snapshot returns a copy of the last stored snapshot.
func (m *ConsignMonitor) Snapshot() model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(model.Snapshot, len(m.prev))
	for id, c := range m.prev {
		out[id] = c
	}
	return out
}

// Poll runs a single poll cycle.
func (m *ConsignMonitor) Poll(ctx context.Context) {
	resp, ok := m.fetch(ctx, &client.Request{
		Method: http.MethodGet,
		URL:    m.seller.Endpoints().ConsignmentSlots(),
		Query: url.Values{
			"take":    {pageSize},
			"nocache": {strconv.FormatUint(rand.Uint64(), 36)},
		},
	})
	if !ok {
		return
	}

	var page consignsPage
	if err := resp.Decode(&page); err != nil {
		m.log.WithError(err).Error("decode consignment slots")
		return
	}
	m.apply(ctx, model.NewSnapshot(page.Results...))
}

func (m *ConsignMonitor) apply(ctx context.Context, curr model.Snapshot) {
	m.mu.Lock()
	if !m.primed {
		m.prev = curr
		m.primed = true
		m.mu.Unlock()
		m.log.WithField("slots", len(curr)).Debug("initial consignment slots fetched, monitoring")
		return
	}
	changes := DiffSnapshots(m.prev, curr)
	m.prev = curr
	m.mu.Unlock()

	for _, ch := range changes {
		log := m.log.WithField("consign", ch.Consign.ID)
		switch ch.Kind {
		case ConsignGone:
			log.Infof("consign removed: %s", ch.Consign)
			continue
		case ConsignNew:
			log.Infof("new consign: %s", ch.Consign)
		}
		if len(ch.Removed) > 0 {
			log.Infof("consign %d has removed sizes: %v", ch.Consign.ID, ch.Removed.Slice())
		}
		if len(ch.Added) == 0 {
			continue
		}

		sizes := ch.Added.Slice()
		log.Infof("consign %d has added sizes: %v", ch.Consign.ID, sizes)
		m.metrics.SizesAdded.Add(float64(len(sizes)))
		m.handler.SizesAdded(ctx, ch.Consign, sizes)
	}
	m.log.Debug("monitoring consigns")
}
