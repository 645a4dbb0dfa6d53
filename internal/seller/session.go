// Package seller logs an account into the marketplace and keeps the
// authenticated session used by the monitors.
package seller

import (
	"context"
	"errors"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/yourneighborhoodchef/sellbot/internal/captcha"
	"github.com/yourneighborhoodchef/sellbot/internal/client"
	"github.com/yourneighborhoodchef/sellbot/internal/model"
)

var (
	ErrBootstrap        = errors.New("bootstrap failed")
	ErrUnauthorized     = errors.New("access token expired")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

const (
	DefaultAttempts = 5
	DefaultPageSize = 100
)

type Options struct {
	Endpoints Endpoints
	// Attempts bounds every bootstrap step.
	Attempts int
	// Delay is waited before every attempt of a step.
	Delay    time.Duration
	PageSize int
}

// Session is one logged-in account. It is safe for concurrent use by the offer
// and consign loops.
type Session struct {
	account   model.Account
	transport client.Transport
	solver    captcha.Solver
	opts      Options
	log       *logrus.Entry

	mu          sync.RWMutex
	csrfToken   string
	accessToken string
	firstName   string
	addressUUID string
	paymentUUID string

	listing *model.Listing
	state   *fsm.FSM
	refresh singleflight.Group
}

func New(account model.Account, transport client.Transport, solver captcha.Solver, opts Options, log *logrus.Entry) *Session {
	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints()
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	log = log.WithField("account", account.Email)

	return &Session{
		account:   account,
		transport: transport,
		solver:    solver,
		opts:      opts,
		log:       log,
		listing:   model.NewListing(nil),
		state:     newStateMachine(log),
	}
}

func (s *Session) Account() model.Account {
	return s.account
}

func (s *Session) Endpoints() Endpoints {
	return s.opts.Endpoints
}

func (s *Session) Listing() *model.Listing {
	return s.listing
}

func (s *Session) FirstName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firstName
}

func (s *Session) PaymentUUID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paymentUUID
}

func (s *Session) AddressUUID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addressUUID
}

func (s *Session) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Do sends req with the session's bearer token once one is known.
func (s *Session) Do(ctx context.Context, req *client.Request) (*client.Response, error) {
	if tok := s.token(); tok != "" {
		h := http.Header{}
		for k, v := range req.Header {
			h[k] = v
		}
		h.Set("authorization", "Bearer "+tok)
		clone := *req
		clone.Header = h
		req = &clone
	}
	return s.transport.Do(ctx, req)
}

// Refresh logs in again after the access token expired. Concurrent callers
// share a single login.
func (s *Session) Refresh(ctx context.Context) error {
	_, err, _ := s.refresh.Do("refresh", func() (any, error) {
		s.log.Warn("seller token expired, refreshing")
		s.transition(ctx, eventExpire)
		if err := s.authenticate(ctx); err != nil {
			s.transition(ctx, eventFail)
			return nil, err
		}
		s.transition(ctx, eventReady)
		return nil, nil
	})
	return err
}
