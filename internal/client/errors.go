package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	ErrTimeout = errors.New("request timed out")
	ErrProxy   = errors.New("proxy rejected request")
)

func classify(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	msg := err.Error()
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(msg, "Client.Timeout exceeded"),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case strings.Contains(msg, "Proxy responded with non 200 code"),
		strings.Contains(msg, "proxyconnect"):
		return fmt.Errorf("%w: %w", ErrProxy, err)
	}
	return err
}

// IsTransient reports whether err is a timeout or proxy failure that the next
// poll cycle is expected to get past.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrProxy)
}
