package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/repository/memory"
	apperrors "github.com/spec-kit/crm-service/pkg/errorutil"
)

const bootstrapSecret = "bootstrap-secret"

var testAuthConfig = config.AuthConfig{
	JWTSecret:             "access-secret",
	JWTRefreshSecret:      "refresh-secret",
	Issuer:                "crm-test",
	AccessTokenTTLMinutes: 60,
	RefreshTokenTTLHours:  720,
	BcryptCost:            4,
	AdminBootstrapSecret:  bootstrapSecret,
}

// tickingClock advances one second per reading so stored rows get distinct timestamps.
type tickingClock struct {
	base  time.Time
	ticks atomic.Int64
}

func (c *tickingClock) Now() time.Time {
	return c.base.Add(time.Duration(c.ticks.Add(1)) * time.Second)
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func (l *eventLog) last() events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

type fixture struct {
	repos        repository.Repositories
	log          *eventLog
	tokens       *auth.TokenManager
	revocations  *auth.MemoryRevocationStore
	customers    *CustomerService
	reviews      *ReviewService
	interactions *InteractionService
	auth         *AuthService
	users        *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &tickingClock{base: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	repos := memory.NewRepositories(memory.WithClock(clock.Now))

	dispatcher := events.NewInMemoryDispatcher()
	log := &eventLog{}
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, log.handle)
	}

	deps := Dependencies{Repos: repos, Dispatcher: dispatcher, Logger: zap.NewNop()}
	tokens := auth.NewTokenManager(testAuthConfig)
	revocations := auth.NewMemoryRevocationStore()

	return &fixture{
		repos:        repos,
		log:          log,
		tokens:       tokens,
		revocations:  revocations,
		customers:    NewCustomerService(deps),
		reviews:      NewReviewService(deps),
		interactions: NewInteractionService(deps),
		auth:         NewAuthService(testAuthConfig, AuthDependencies{Dependencies: deps, Tokens: tokens, Revocations: revocations}),
		users:        NewUserService(testAuthConfig, deps, revocations),
	}
}

func (f *fixture) createCustomer(t *testing.T, first, last, email string) *CustomerDetail {
	t.Helper()
	c, err := f.customers.Create(context.Background(), CustomerInput{FirstName: first, LastName: last, Email: email})
	require.NoError(t, err)
	return c
}

func (f *fixture) register(t *testing.T, input RegisterInput) *domain.User {
	t.Helper()
	if input.Password == "" {
		input.Password = "password123"
	}
	u, err := f.auth.Register(context.Background(), nil, input)
	require.NoError(t, err)
	return u
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.IsCode(err, code), "want %s, got %v", code, err)
}

func float(v float64) *float64 { return &v }

func str(v string) *string { return &v }
