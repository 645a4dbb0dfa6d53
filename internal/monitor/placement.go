package monitor

import (
	"context"
	"fmt"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/sirupsen/logrus"

	"github.com/yourneighborhoodchef/sellbot/internal/client"
	"github.com/yourneighborhoodchef/sellbot/internal/logging"
	"github.com/yourneighborhoodchef/sellbot/internal/metrics"
	"github.com/yourneighborhoodchef/sellbot/internal/model"
	"github.com/yourneighborhoodchef/sellbot/internal/notify"
	"github.com/yourneighborhoodchef/sellbot/internal/ratelimit"
	"github.com/yourneighborhoodchef/sellbot/internal/seller"
)

const DefaultDeleteAttempts = 5

type variant struct {
	ID           int    `json:"id"`
	EuropeanSize string `json:"europeanSize"`
}

type slotVariants struct {
	Variants []variant `json:"variants"`
}

type consignmentRequest struct {
	VariantID        int    `json:"variantId"`
	Quantity         int    `json:"quantity"`
	Price            int    `json:"price"`
	PaymentInfosUUID string `json:"paymentInfosUuid"`
	AddressUUID      string `json:"addressUuid"`
	AcceptTerms      bool   `json:"acceptTerms"`
	AcceptConditions bool   `json:"acceptConditions"`
}

type PlacerOptions struct {
	// DeleteAttempts bounds how often a consigned listing entry is deleted.
	DeleteAttempts int
	DeleteDelay    time.Duration
}

// Placer consigns newly available sizes the target sellers have listed.
type Placer struct {
	targets  []Seller
	notifier Notifier
	opts     PlacerOptions
	metrics  *metrics.Metrics
	log      *logrus.Entry
}

func NewPlacer(targets []Seller, n Notifier, opts PlacerOptions, m *metrics.Metrics, log *logrus.Logger) *Placer {
	if opts.DeleteAttempts <= 0 {
		opts.DeleteAttempts = DefaultDeleteAttempts
	}
	return &Placer{
		targets:  targets,
		notifier: n,
		opts:     opts,
		metrics:  m,
		log:      logging.Component(log, "placement"),
	}
}

// Place tries every size of c against every target seller's listing. A listing
// entry is taken before the consignment is posted and put back if placing it
// fails, so two placers sharing a target never consign the same entry. A failed
// candidate is logged and the next one is tried.
func (p *Placer) Place(ctx context.Context, c model.Consign, sizes []string) {
	for _, target := range p.targets {
		log := p.log.WithFields(logrus.Fields{
			"account": target.Account().Email,
			"consign": c.ID,
		})

		var variants []variant
		for _, size := range sizes {
			if ctx.Err() != nil {
				return
			}

			product, ok := target.Listing().Take(model.ProductKey{Name: c.Name, Size: size})
			if !ok {
				log.Debugf("%s size %s not in listing, skipping", c.Name, size)
				continue
			}

			if variants == nil {
				var err error
				if variants, err = p.variants(ctx, target, c.ID); err != nil {
					target.Listing().Restore(product)
					p.metrics.Placements.WithLabelValues("error").Inc()
					seller.LogFailure(log, err, "fetch slot variants failed")
					break
				}
			}
			if !p.placeOne(ctx, log, target, c, product, variants) {
				target.Listing().Restore(product)
			}
		}
	}
}

func (p *Placer) variants(ctx context.Context, target Seller, id int) ([]variant, error) {
	resp, err := target.Do(ctx, &client.Request{
		Method: http.MethodGet,
		URL:    target.Endpoints().ConsignmentSlot(id),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d: %s", seller.ErrUnexpectedStatus, resp.StatusCode, client.Sample(resp.Body))
	}

	var slot slotVariants
	if err := resp.Decode(&slot); err != nil {
		return nil, err
	}
	if slot.Variants == nil {
		slot.Variants = []variant{}
	}
	return slot.Variants, nil
}

// placeOne reports whether the consignment was created. The listing entry is
// not restored after that point even if deleting it remotely fails.
func (p *Placer) placeOne(ctx context.Context, log *logrus.Entry, target Seller, c model.Consign, product model.Product, variants []variant) bool {
	log = log.WithFields(logrus.Fields{"listing": product.ID, "size": product.Size})

	variantID := -1
	for _, v := range variants {
		if v.EuropeanSize == product.Size {
			variantID = v.ID
			break
		}
	}
	if variantID < 0 {
		p.metrics.Placements.WithLabelValues("no_variant").Inc()
		log.Warn("no slot variant for size")
		return false
	}

	log.Infof("placing consignment for %s at %d", product.Name, product.Price)
	resp, err := target.Do(ctx, &client.Request{
		Method: http.MethodPost,
		URL:    target.Endpoints().Consignments(),
		JSON: consignmentRequest{
			VariantID:        variantID,
			Quantity:         1,
			Price:            product.Price,
			PaymentInfosUUID: target.PaymentUUID(),
			AddressUUID:      target.AddressUUID(),
			AcceptTerms:      true,
			AcceptConditions: true,
		},
	})
	if err != nil {
		p.metrics.Placements.WithLabelValues("error").Inc()
		seller.LogFailure(log, err, "place consignment failed")
		return false
	}
	if resp.StatusCode != http.StatusCreated {
		p.metrics.Placements.WithLabelValues("rejected").Inc()
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   client.Sample(resp.Body),
		}).Error("consignment rejected")
		return false
	}

	p.metrics.Placements.WithLabelValues("placed").Inc()
	log.Info("consignment placed")
	p.notifier.Notify(notify.ConsignPlaced(target.Account().Email, c, product))

	p.deleteListing(ctx, log, target, product)
	return true
}

// deleteListing removes a consigned entry from the seller's remote listing,
// giving up after DeleteAttempts and alerting the operator instead.
func (p *Placer) deleteListing(ctx context.Context, log *logrus.Entry, target Seller, product model.Product) {
	var lastErr error
	for attempt := 1; attempt <= p.opts.DeleteAttempts; attempt++ {
		if attempt > 1 {
			if err := ratelimit.Sleep(ctx, p.opts.DeleteDelay); err != nil {
				return
			}
		}

		resp, err := target.Do(ctx, &client.Request{
			Method: http.MethodDelete,
			URL:    target.Endpoints().Listing(product.ID),
		})
		switch {
		case err != nil:
			lastErr = err
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			log.Info("listing entry deleted")
			return
		default:
			lastErr = fmt.Errorf("%w %d: %s", seller.ErrUnexpectedStatus, resp.StatusCode, client.Sample(resp.Body))
		}

		msg := "delete listing entry failed"
		if attempt < p.opts.DeleteAttempts {
			msg += ", retrying"
		}
		seller.LogFailure(log, lastErr, msg)
		log.Debugf("retrying listing deletion (%d/%d)", attempt, p.opts.DeleteAttempts)
	}

	log.WithError(lastErr).Error("listing entry could not be deleted")
	p.notifier.Notify(notify.ListingDeleteFailed(target.Account().Email, product, lastErr.Error()))
}
