package service

import (
	"time"

	"github.com/go-playground/validator/v10"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpeer/internal/hub/core"
	"github.com/autopeer-io/fleetpeer/pkg/log"
)

const (
	defaultOnlineWindow      = 60 * time.Second
	defaultExportExpiry      = time.Hour
	defaultTokenTTL          = 12 * time.Hour
	defaultRosterConcurrency = 16
)

// Service implements the use cases of the hub.
// It orchestrates calls between the model and the adapters (ports).
type Service struct {
	repo     core.Repository
	notifier core.ChangeNotifier
	storage  core.Storage
	tokens   core.TokenIssuer
	hasher   core.PasswordHasher

	clock             clock.PassiveClock
	validate          *validator.Validate
	logger            log.Logger
	onlineWindow      time.Duration
	exportExpiry      time.Duration
	tokenTTL          time.Duration
	rosterConcurrency int
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.PassiveClock) Option {
	return func(s *Service) { s.clock = c }
}

// WithOnlineWindow sets how recent a position must be for its driver to be online.
func WithOnlineWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.onlineWindow = d
		}
	}
}

// WithExportExpiry sets the lifetime of presigned export URLs.
func WithExportExpiry(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.exportExpiry = d
		}
	}
}

// WithTokenTTL sets the lifetime of sessions created by SignIn.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tokenTTL = d
		}
	}
}

// WithRosterConcurrency bounds the concurrent position lookups of Roster.
func WithRosterConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rosterConcurrency = n
		}
	}
}

// WithLogger sets the logger. The default is log.WithName("service").
func WithLogger(l log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates the hub service. notifier and storage may be nil: change
// events are then dropped and exports report model.ErrExportDisabled.
func New(
	repo core.Repository,
	notifier core.ChangeNotifier,
	storage core.Storage,
	tokens core.TokenIssuer,
	hasher core.PasswordHasher,
	opts ...Option,
) *Service {
	s := &Service{
		repo:              repo,
		notifier:          notifier,
		storage:           storage,
		tokens:            tokens,
		hasher:            hasher,
		clock:             clock.RealClock{},
		validate:          validator.New(validator.WithRequiredStructEnabled()),
		onlineWindow:      defaultOnlineWindow,
		exportExpiry:      defaultExportExpiry,
		tokenTTL:          defaultTokenTTL,
		rosterConcurrency: defaultRosterConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.WithName("service")
	}
	return s
}

// OnlineWindow returns the freshness window used by Roster.
func (s *Service) OnlineWindow() time.Duration {
	return s.onlineWindow
}
