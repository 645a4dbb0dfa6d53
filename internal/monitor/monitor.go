// Package monitor runs the offer and consignment polling loops of a seller
// session.
package monitor

import (
	"context"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/sirupsen/logrus"

	"github.com/yourneighborhoodchef/sellbot/internal/client"
	"github.com/yourneighborhoodchef/sellbot/internal/metrics"
	"github.com/yourneighborhoodchef/sellbot/internal/model"
	"github.com/yourneighborhoodchef/sellbot/internal/notify"
	"github.com/yourneighborhoodchef/sellbot/internal/ratelimit"
	"github.com/yourneighborhoodchef/sellbot/internal/seller"
)

const pageSize = "100"

// Seller is the part of a seller session the monitors use.
type Seller interface {
	Do(ctx context.Context, req *client.Request) (*client.Response, error)
	Refresh(ctx context.Context) error
	Account() model.Account
	Endpoints() seller.Endpoints
	Listing() *model.Listing
	PaymentUUID() string
	AddressUUID() string
}

var _ Seller = (*seller.Session)(nil)

type Notifier interface {
	Notify(e notify.Event)
}

// poller holds what the two loops share: the session they poll through and how
// a failed poll is reported.
type poller struct {
	loop    string
	seller  Seller
	delay   time.Duration
	metrics *metrics.Metrics
	log     *logrus.Entry
}

// run calls poll every delay until ctx is done. A poll cycle always finishes
// before the next one starts.
func (p *poller) run(ctx context.Context, poll func(context.Context)) error {
	p.log.WithField("delay", p.delay).Info("monitoring started")
	for {
		if err := ratelimit.Sleep(ctx, p.delay); err != nil {
			p.log.Info("monitoring stopped")
			return nil
		}
		poll(ctx)
	}
}

// fetch sends req and returns the response when it is a 200. Any other
// outcome is logged and counted. A 401 refreshes the session once.
func (p *poller) fetch(ctx context.Context, req *client.Request) (*client.Response, bool) {
	resp, err := p.seller.Do(ctx, req)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return nil, false
		}
		outcome := "error"
		if client.IsTransient(err) {
			outcome = "transient"
		}
		p.metrics.Polls.WithLabelValues(p.loop, outcome).Inc()
		seller.LogFailure(p.log, err, "poll failed")
		return nil, false

	case resp.StatusCode == http.StatusUnauthorized:
		p.metrics.Polls.WithLabelValues(p.loop, "unauthorized").Inc()
		p.refresh(ctx)
		return nil, false

	case resp.StatusCode != http.StatusOK:
		p.metrics.Polls.WithLabelValues(p.loop, "rejected").Inc()
		p.log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   client.Sample(resp.Body),
		}).Error("poll rejected")
		return nil, false
	}

	p.metrics.Polls.WithLabelValues(p.loop, "ok").Inc()
	return resp, true
}

func (p *poller) refresh(ctx context.Context) {
	if err := p.seller.Refresh(ctx); err != nil {
		p.metrics.Refreshes.WithLabelValues("failed").Inc()
		p.log.WithError(err).Error("session refresh failed")
		return
	}
	p.metrics.Refreshes.WithLabelValues("ok").Inc()
	p.log.Info("session refreshed")
}
