package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/autopeer-io/fleetpeer/cmd/fleetctl/app/options"
	"github.com/autopeer-io/fleetpeer/internal/pkg/hubclient"
	v1 "github.com/autopeer-io/fleetpeer/pkg/api/v1"
	"github.com/autopeer-io/fleetpeer/pkg/app"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

const (
	commandName = "fleetctl"
	commandDesc = `fleetctl is the administrator console of a fleet hub. It lists the
drivers of the organization, watches their positions live, creates driver
accounts and exports roster snapshots.`
)

func NewApp() *app.App {
	opts := options.NewFleetctlOptions()
	return app.NewApp(
		commandName,
		"Administer a fleet hub",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithLogOptions(func() *log.Options { return opts.Log }),
		app.WithSubCommands(
			newLoginCommand(opts),
			newDriversCommand(opts),
			newWatchCommand(opts),
			newCreateDriverCommand(opts),
			newExportCommand(opts),
		),
	)
}

// session is a signed-in hub client.
type session struct {
	client  *hubclient.Client
	profile v1.Profile

	email    string
	password string
}

func signIn(ctx context.Context, opts *options.FleetctlOptions) (*session, error) {
	client, err := hubclient.New(opts.HubClientOptions)
	if err != nil {
		return nil, err
	}
	resp, err := client.SignIn(ctx, opts.HubClientOptions.Email, opts.HubClientOptions.Password)
	if err != nil {
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}
	return &session{
		client:   client,
		profile:  resp.Profile,
		email:    opts.HubClientOptions.Email,
		password: opts.HubClientOptions.Password,
	}, nil
}

// Roster fetches the roster, signing in again once when the hub has
// expired the session.
func (s *session) Roster(ctx context.Context) (*v1.Roster, error) {
	roster, err := s.client.Roster(ctx)
	if !hubclient.IsStatus(err, http.StatusUnauthorized) {
		return roster, err
	}
	if _, err := s.client.SignIn(ctx, s.email, s.password); err != nil {
		return nil, fmt.Errorf("session expired and sign-in failed: %w", err)
	}
	log.Info("Session renewed", "expiresAt", s.client.ExpiresAt())
	return s.client.Roster(ctx)
}

// close revokes the session token.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.SignOut(ctx); err != nil {
		log.Warn("Sign-out failed", "error", err)
	}
}
