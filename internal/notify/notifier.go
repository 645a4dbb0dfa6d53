package notify

import (
	"context"
	"fmt"

	http "github.com/bogdanfinn/fhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourneighborhoodchef/sellbot/internal/client"
	"github.com/yourneighborhoodchef/sellbot/internal/metrics"
)

const (
	defaultBuffer = 256
	// Discord allows roughly 30 webhook posts per minute per channel.
	defaultRate  = rate.Limit(0.5)
	defaultBurst = 5
)

type Webhooks struct {
	Success string
	Refused string
	Monitor string
}

type Options struct {
	Webhooks  Webhooks
	Username  string
	AvatarURL string
	Buffer    int
	Rate      rate.Limit
	Burst     int
}

// Notifier delivers events to chat webhooks in the background. Notify never
// blocks; a full queue drops the event with a warning.
type Notifier struct {
	transport client.Transport
	opts      Options
	events    chan Event
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

func New(transport client.Transport, opts Options, m *metrics.Metrics, log *logrus.Entry) *Notifier {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.Rate <= 0 {
		opts.Rate = defaultRate
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}
	return &Notifier{
		transport: transport,
		opts:      opts,
		events:    make(chan Event, opts.Buffer),
		limiter:   rate.NewLimiter(opts.Rate, opts.Burst),
		metrics:   m,
		log:       log,
	}
}

// route picks the webhook for a kind. Kinds without a dedicated webhook fall
// back to the success webhook.
func (n *Notifier) route(kind Kind) string {
	w := n.opts.Webhooks
	var url string
	switch kind {
	case KindOfferAccepted, KindConsignPlaced:
		url = w.Success
	case KindOfferRefused:
		url = w.Refused
	default:
		url = w.Monitor
	}
	if url == "" {
		url = w.Success
	}
	return url
}

func (n *Notifier) Notify(e Event) {
	if n.route(e.Kind) == "" {
		return
	}
	select {
	case n.events <- e:
	default:
		n.log.WithField("kind", e.Kind).Warn("notification queue full, dropping event")
		n.metrics.Notifications.WithLabelValues(string(e.Kind), "dropped").Inc()
	}
}

// Run delivers queued events until ctx is done.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-n.events:
			if err := n.limiter.Wait(ctx); err != nil {
				return
			}
			if err := n.Deliver(ctx, e); err != nil {
				n.log.WithError(err).WithField("kind", e.Kind).Error("webhook delivery failed")
			}
		}
	}
}

// Deliver posts e synchronously. An unrouted kind is a no-op.
func (n *Notifier) Deliver(ctx context.Context, e Event) error {
	url := n.route(e.Kind)
	if url == "" {
		return nil
	}

	payload := Payload{
		Username:  n.opts.Username,
		AvatarURL: n.opts.AvatarURL,
		Embeds:    []Embed{BuildEmbed(e)},
	}
	resp, err := n.transport.Do(ctx, &client.Request{
		Method: http.MethodPost,
		URL:    url,
		JSON:   payload,
		Header: http.Header{"Content-Type": {"application/json"}},
	})
	if err != nil {
		n.metrics.Notifications.WithLabelValues(string(e.Kind), "error").Inc()
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.metrics.Notifications.WithLabelValues(string(e.Kind), "error").Inc()
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, client.Sample(resp.Body))
	}

	n.metrics.Notifications.WithLabelValues(string(e.Kind), "sent").Inc()
	n.log.WithField("kind", e.Kind).Debug("webhook sent")
	return nil
}
