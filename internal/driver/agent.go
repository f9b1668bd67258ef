package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/internal/pkg/hubclient"
	"github.com/autopeer-io/fleetpeer/pkg/log"
	"github.com/autopeer-io/fleetpeer/pkg/mqtt"
	mqtttopic "github.com/autopeer-io/fleetpeer/pkg/mqtt/topic"
)

// Agent signs a driver in and runs a Reporter until the context is done.
type Agent struct {
	client    *hubclient.Client
	locator   Locator
	email     string
	password  string
	heartbeat time.Duration

	topics        *mqtttopic.Builder
	newMQTTClient func(driverID string) (mqtt.Client, error)

	clock clock.Clock

	// reauth is signalled when the hub rejects the session.
	reauth chan struct{}
}

const (
	// renewBefore is how long before expiry the session is renewed.
	renewBefore = 2 * time.Minute
	// minRenewDelay keeps a hub that hands out short sessions from
	// being asked in a tight loop.
	minRenewDelay = 10 * time.Second
)

func (a *Agent) Run(ctx context.Context) error {
	signIn, err := a.client.SignIn(ctx, a.email, a.password)
	if err != nil {
		return fmt.Errorf("failed to sign in as %s: %w", a.email, err)
	}
	profile := signIn.Profile
	logger := log.WithName("driver-agent").WithValues("driverID", profile.ID)

	defer func() {
		signOutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.client.SignOut(signOutCtx); err != nil {
			logger.Warn("Sign-out failed", "error", err)
		}
	}()

	if profile.Role != "driver" {
		return fmt.Errorf("account %s is a %s, not a driver", a.email, profile.Role)
	}
	logger.Info("Signed in", "name", profile.Name, "organization", profile.OrganizationName)

	pusher, stopPusher, err := a.newPusher(ctx, profile.ID)
	if err != nil {
		return err
	}
	defer stopPusher()

	a.reauth = make(chan struct{}, 1)
	reporter := NewReporter(a.locator, pusher,
		WithHeartbeat(a.heartbeat),
		WithErrorHandler(a.onError),
		WithLogger(logger),
	)

	h, err := reporter.Start(ctx)
	if err != nil {
		return err
	}
	defer h.Stop()

	renewal := a.newRenewal(signIn.ExpiresAt)
	defer func() { renewal.stop() }()

	for {
		select {
		case <-ctx.Done():
			st := reporter.Status()
			logger.Info("Agent shutting down", "state", st.State, "lastError", st.Code)
			return nil
		case <-renewal.c:
			logger.Debug("Session about to expire", "expiresAt", signIn.ExpiresAt)
		case <-a.reauth:
		}

		renewed, err := a.client.SignIn(ctx, a.email, a.password)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error(err, "Re-authentication failed")
			}
			continue
		}
		signIn = renewed
		renewal.stop()
		renewal = a.newRenewal(signIn.ExpiresAt)
		logger.Info("Session renewed", "expiresAt", signIn.ExpiresAt)

		// Resend what the old session failed to push.
		h.Resend()
	}
}

type renewal struct {
	timer clock.Timer
	c     <-chan time.Time
}

func (r renewal) stop() {
	if r.timer != nil {
		r.timer.Stop()
	}
}

// newRenewal schedules a sign-in ahead of expiresAt. A zero expiresAt
// schedules nothing.
func (a *Agent) newRenewal(expiresAt time.Time) renewal {
	if expiresAt.IsZero() {
		return renewal{}
	}
	d := expiresAt.Sub(a.clock.Now()) - renewBefore
	if d < minRenewDelay {
		d = minRenewDelay
	}
	t := a.clock.NewTimer(d)
	return renewal{timer: t, c: t.C()}
}

func (a *Agent) onError(err error) {
	if errors.Is(err, ErrUnauthorized) {
		select {
		case a.reauth <- struct{}{}:
		default:
		}
	}
}

func (a *Agent) newPusher(ctx context.Context, driverID string) (Pusher, func(), error) {
	if a.newMQTTClient == nil {
		return NewHTTPPusher(a.client), func() {}, nil
	}

	client, err := a.newMQTTClient(driverID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}
	if err := client.Start(ctx); err != nil {
		return nil, nil, err
	}
	stop := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(disconnectCtx)
	}
	if err := client.AwaitConnection(ctx); err != nil {
		stop()
		return nil, nil, err
	}

	return NewMQTTPusher(client, a.topics, driverID, a.client), stop, nil
}
