// Package captcha holds the challenge-solving collaborators used at login.
// Solving itself is delegated; nothing here attempts to defeat a challenge.
package captcha

import (
	"context"
	"errors"
	"fmt"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	"github.com/yourneighborhoodchef/sellbot/internal/client"
)

var ErrNoToken = errors.New("captcha: no token")

type Solver interface {
	Solve(ctx context.Context, anchorURL string) (string, error)
}

type SolverFunc func(ctx context.Context, anchorURL string) (string, error)

func (f SolverFunc) Solve(ctx context.Context, anchorURL string) (string, error) {
	return f(ctx, anchorURL)
}

// Static returns a pre-obtained token.
type Static string

func (s Static) Solve(context.Context, string) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// Service asks an external solving service for a token. The service receives
// the anchor URL and answers with {"token": "..."}.
type Service struct {
	Endpoint  string
	Key       string
	Transport client.Transport
}

func (s *Service) Solve(ctx context.Context, anchorURL string) (string, error) {
	resp, err := s.Transport.Do(ctx, &client.Request{
		Method: http.MethodPost,
		URL:    s.Endpoint,
		JSON: map[string]string{
			"key":        s.Key,
			"anchor_url": anchorURL,
		},
	})
	if err != nil {
		return "", fmt.Errorf("captcha service: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("captcha service: status %d: %s", resp.StatusCode, client.Sample(resp.Body))
	}

	token := gjson.GetBytes(resp.Body, "token").String()
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
