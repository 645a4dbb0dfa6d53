package seller

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"
)

const (
	StateNew            = "new"
	StateAuthenticating = "authenticating"
	StateAuthenticated  = "authenticated"
	StateLoading        = "loading"
	StateReady          = "ready"
	StateExpired        = "expired"
	StateFailed         = "failed"
)

const (
	eventLogin         = "login"
	eventAuthenticated = "authenticated"
	eventLoad          = "load"
	eventReady         = "ready"
	eventExpire        = "expire"
	eventFail          = "fail"
)

func newStateMachine(log *logrus.Entry) *fsm.FSM {
	return fsm.NewFSM(
		StateNew,
		fsm.Events{
			{Name: eventLogin, Src: []string{StateNew, StateExpired, StateFailed}, Dst: StateAuthenticating},
			{Name: eventAuthenticated, Src: []string{StateAuthenticating}, Dst: StateAuthenticated},
			{Name: eventLoad, Src: []string{StateAuthenticated}, Dst: StateLoading},
			{Name: eventReady, Src: []string{StateLoading, StateAuthenticated}, Dst: StateReady},
			{Name: eventExpire, Src: []string{StateReady}, Dst: StateExpired},
			{Name: eventFail, Src: []string{StateAuthenticating, StateAuthenticated, StateLoading}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				log.WithFields(logrus.Fields{"from": e.Src, "to": e.Dst}).Debug("session state changed")
			},
		},
	)
}

// transition fires event, ignoring the no-op case where the session is already
// in the target state.
func (s *Session) transition(ctx context.Context, event string) {
	err := s.state.Event(ctx, event)
	if err == nil {
		return
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return
	}
	s.log.WithError(err).WithField("event", event).Debug("session state unchanged")
}

// State reports where the session is in its login lifecycle.
func (s *Session) State() string {
	return s.state.Current()
}
