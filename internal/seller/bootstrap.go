package seller

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	http "github.com/bogdanfinn/fhttp"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/yourneighborhoodchef/sellbot/internal/client"
	"github.com/yourneighborhoodchef/sellbot/internal/model"
)

type listingPage struct {
	Results []struct {
		Name    string      `json:"name"`
		Price   model.Price `json:"price"`
		Product struct {
			Name         string `json:"name"`
			Image        string `json:"image"`
			EuropeanSize string `json:"europeanSize"`
		} `json:"product"`
	} `json:"results"`
}

// Bootstrap logs the account in and loads everything the monitors need: the
// bearer token, the current listing and the payment and address UUIDs.
func (s *Session) Bootstrap(ctx context.Context) error {
	if err := s.authenticate(ctx); err != nil {
		s.transition(ctx, eventFail)
		return err
	}

	s.transition(ctx, eventLoad)
	if err := s.load(ctx); err != nil {
		s.transition(ctx, eventFail)
		return err
	}

	s.transition(ctx, eventReady)
	s.log.WithFields(logrus.Fields{
		"name":     s.FirstName(),
		"listings": s.listing.Len(),
	}).Info("seller session ready")
	return nil
}

func (s *Session) authenticate(ctx context.Context) error {
	s.transition(ctx, eventLogin)
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"csrf", s.fetchCSRF},
		{"login", s.login},
		{"profile", s.fetchProfile},
	}
	for _, step := range steps {
		if err := retry(ctx, s.log, step.name, s.opts.Attempts, s.opts.Delay, step.fn); err != nil {
			return err
		}
	}
	s.transition(ctx, eventAuthenticated)
	return nil
}

func (s *Session) load(ctx context.Context) error {
	if err := retry(ctx, s.log, "listing", s.opts.Attempts, s.opts.Delay, s.fetchListing); err != nil {
		return err
	}
	return retry(ctx, s.log, "uuids", s.opts.Attempts, s.opts.Delay, s.fetchUUIDs)
}

func (s *Session) get(ctx context.Context, target string) (*client.Response, error) {
	resp, err := s.Do(ctx, &client.Request{Method: http.MethodGet, URL: target})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, statusError(resp)
	}
	return resp, nil
}

func statusError(resp *client.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, client.Sample(resp.Body))
}

func (s *Session) fetchCSRF(ctx context.Context) error {
	resp, err := s.get(ctx, s.opts.Endpoints.CSRF())
	if err != nil {
		return err
	}
	token := gjson.GetBytes(resp.Body, "csrfToken").String()
	if token == "" {
		return errors.New("csrf token missing from response")
	}

	s.mu.Lock()
	s.csrfToken = token
	s.mu.Unlock()
	s.log.Debug("retrieved csrf token")
	return nil
}

// login posts the credentials and reads the access token back from the
// session endpoint. Both calls are retried together.
func (s *Session) login(ctx context.Context) error {
	captchaToken, err := s.solver.Solve(ctx, RecaptchaAnchor)
	if err != nil {
		return fmt.Errorf("solve captcha: %w", err)
	}

	s.mu.RLock()
	csrf := s.csrfToken
	s.mu.RUnlock()

	resp, err := s.Do(ctx, &client.Request{
		Method: http.MethodPost,
		URL:    s.opts.Endpoints.Credentials(),
		JSON: map[string]string{
			"redirect":       "false",
			"email":          s.account.Email,
			"password":       s.account.Password,
			"recaptchaToken": captchaToken,
			"pushToken":      "undefined",
			"os":             "undefined",
			"osVersion":      "undefined",
			"csrfToken":      csrf,
			"callbackUrl":    s.opts.Endpoints.LoginPage(),
			"json":           "true",
		},
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post credentials: %w", statusError(resp))
	}

	resp, err = s.get(ctx, s.opts.Endpoints.Session())
	if err != nil {
		return err
	}
	token := gjson.GetBytes(resp.Body, "user.accessToken").String()
	if token == "" {
		return errors.New("access token missing from session")
	}

	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
	s.log.Debug("retrieved access token")
	return nil
}

func (s *Session) fetchProfile(ctx context.Context) error {
	resp, err := s.get(ctx, s.opts.Endpoints.Profile())
	if err != nil {
		return err
	}
	name := gjson.GetBytes(resp.Body, "firstname").String()

	s.mu.Lock()
	s.firstName = name
	s.mu.Unlock()
	s.log.Infof("logged in as %s", name)
	return nil
}

func (s *Session) fetchListing(ctx context.Context) error {
	var products []model.Product
	for skip := 0; ; skip += s.opts.PageSize {
		resp, err := s.Do(ctx, &client.Request{
			Method: http.MethodGet,
			URL:    s.opts.Endpoints.Listings(),
			Query: url.Values{
				"take": {strconv.Itoa(s.opts.PageSize)},
				"skip": {strconv.Itoa(skip)},
			},
		})
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fetch listing: %w", statusError(resp))
		}

		var page listingPage
		if err := resp.Decode(&page); err != nil {
			return err
		}
		if len(page.Results) == 0 {
			break
		}
		for _, r := range page.Results {
			products = append(products, model.Product{
				ID:    r.Name,
				Name:  r.Product.Name,
				Size:  r.Product.EuropeanSize,
				Image: r.Product.Image,
				Price: int(r.Price),
			})
		}
	}

	s.listing.Replace(products)
	s.log.Infof("fetched %d products from listing", len(products))
	return nil
}

func (s *Session) fetchUUIDs(ctx context.Context) error {
	resp, err := s.get(ctx, s.opts.Endpoints.PaymentInfos())
	if err != nil {
		return err
	}
	payment := gjson.GetBytes(resp.Body, "0.uuid").String()

	resp, err = s.get(ctx, s.opts.Endpoints.ShippingAddress())
	if err != nil {
		return err
	}
	address := gjson.GetBytes(resp.Body, "uuid").String()

	if payment == "" || address == "" {
		return errors.New("payment or address uuid missing")
	}

	s.mu.Lock()
	s.paymentUUID = payment
	s.addressUUID = address
	s.mu.Unlock()
	s.log.Debug("fetched payment and address uuids")
	return nil
}
