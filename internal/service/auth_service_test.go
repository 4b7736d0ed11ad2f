package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgate/jwt-auth/internal/auth"
	"github.com/authgate/jwt-auth/internal/config"
	"github.com/authgate/jwt-auth/internal/domain"
	"github.com/authgate/jwt-auth/internal/events"
	"github.com/authgate/jwt-auth/internal/observability"
	"github.com/authgate/jwt-auth/internal/repository"
	"github.com/authgate/jwt-auth/internal/service"
)

const testSecret = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc      *service.AuthService
	store    repository.UserStore
	clock    *clock
	recorder *recorder
	metrics  *observability.Metrics
}

func newFixture(t *testing.T, expirationMillis int64) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	store := repository.NewRedisUserStore(client, "svc:")
	dispatcher := events.NewInMemoryDispatcher()
	rec := &recorder{}
	for _, et := range []events.EventType{
		events.EventLoginSucceeded, events.EventLoginFailed, events.EventUserRegistered, events.EventTokenRejected,
	} {
		dispatcher.Subscribe(et, rec.handle)
	}
	metrics := observability.NewMetrics()
	service.NewAuditService(dispatcher, zap.NewNop(), metrics).RegisterHandlers()

	clk := &clock{now: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)}
	svc, err := service.NewAuthService(config.AuthConfig{
		Enabled:          true,
		JWTSecret:        testSecret,
		ExpirationMillis: expirationMillis,
		BcryptCost:       bcrypt.MinCost,
	}, service.AuthDependencies{
		Users:      store,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	}, auth.WithClock(clk.Now))
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, clock: clk, recorder: rec, metrics: metrics}
}

func (f *fixture) addUser(t *testing.T, username, password string, active bool) {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.store.Create(context.Background(), &domain.User{Username: username, PasswordHash: hash, Active: active}))
}

func TestNewAuthService_InvalidKeyMaterial(t *testing.T) {
	_, err := service.NewAuthService(config.AuthConfig{JWTSecret: "dG9vLXNob3J0", ExpirationMillis: 1000}, service.AuthDependencies{})
	assert.ErrorIs(t, err, auth.ErrInvalidKeyMaterial)
}

func TestLogin_Succeeds(t *testing.T) {
	f := newFixture(t, 60_000)
	f.addUser(t, "alice", "wonderland", true)

	identity, issued, err := f.svc.Login(context.Background(), "alice", "wonderland")
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.GetUsername())
	assert.True(t, issued.ExpiresAt.Equal(f.clock.Now().Add(time.Minute)))
	assert.True(t, f.svc.TokenManager().Validate(issued.Token))

	subject, err := f.svc.TokenManager().ExtractSubject(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)

	assert.Equal(t, []events.EventType{events.EventLoginSucceeded}, f.recorder.types())
	assert.Equal(t, int64(1), f.metrics.Snapshot().Auth[observability.MetricTokensIssued])
}

func TestLogin_FailuresLookIdentical(t *testing.T) {
	f := newFixture(t, 60_000)
	f.addUser(t, "alice", "wonderland", true)
	f.addUser(t, "carol", "secret", false)

	cases := []struct{ username, password string }{
		{"alice", "wrong"},
		{"ghost", "wonderland"},
		{"carol", "secret"},
	}
	for _, c := range cases {
		_, _, err := f.svc.Login(context.Background(), c.username, c.password)
		assert.ErrorIs(t, err, service.ErrInvalidCredentials, c.username)
	}

	_, _, err := f.svc.Login(context.Background(), "", "x")
	assert.ErrorIs(t, err, service.ErrMissingCredentials)

	assert.Equal(t, int64(3), f.metrics.Snapshot().Auth[observability.MetricLoginsFailed])
}

func TestRegister(t *testing.T) {
	f := newFixture(t, 60_000)
	ctx := context.Background()

	identity, issued, err := f.svc.Register(ctx, "  dave ", "pa55word")
	require.NoError(t, err)
	assert.Equal(t, "dave", identity.GetUsername())
	assert.True(t, identity.IsActive())
	assert.NotEqual(t, "pa55word", identity.GetPassword())
	assert.True(t, f.svc.TokenManager().Validate(issued.Token))

	_, _, err = f.svc.Register(ctx, "dave", "other")
	assert.ErrorIs(t, err, repository.ErrUsernameTaken)

	_, _, err = f.svc.Register(ctx, "erin", "")
	assert.ErrorIs(t, err, service.ErrMissingCredentials)

	_, _, err = f.svc.Register(ctx, "erin", strings.Repeat("x", auth.MaxPasswordBytes+1))
	assert.ErrorIs(t, err, auth.ErrPasswordTooLong)
	exists, err := f.store.ExistsByUsername(ctx, "erin")
	require.NoError(t, err)
	assert.False(t, exists)

	_, _, err = f.svc.Login(ctx, "dave", "pa55word")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.metrics.Snapshot().Auth[observability.MetricUsersCreated])
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, 1000)
	ctx := context.Background()
	f.addUser(t, "alice", "wonderland", true)

	_, issued, err := f.svc.Login(ctx, "alice", "wonderland")
	require.NoError(t, err)

	identity, err := f.svc.Authenticate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.GetUsername())

	_, err = f.svc.Authenticate(ctx, issued.Token+"x")
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	_, err = f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	f.clock.Advance(1001 * time.Millisecond)
	_, err = f.svc.Authenticate(ctx, issued.Token)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	assert.Equal(t, int64(3), f.metrics.Snapshot().Auth[observability.MetricTokensRejected])
}

func TestAuthenticate_UnknownOrInactiveSubject(t *testing.T) {
	f := newFixture(t, 60_000)
	ctx := context.Background()

	orphan, err := f.svc.TokenManager().Issue("nobody")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, orphan)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)

	f.addUser(t, "carol", "secret", false)
	inactive, err := f.svc.TokenManager().Issue("carol")
	require.NoError(t, err)
	_, err = f.svc.Authenticate(ctx, inactive)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
}

type failingStore struct {
	repository.UserStore
}

func (failingStore) FindByUsername(context.Context, string) (domain.Identity, error) {
	return nil, errors.New("connection refused")
}

func TestAuthenticate_StoreFailureIsNotARejection(t *testing.T) {
	svc, err := service.NewAuthService(config.AuthConfig{
		JWTSecret:        testSecret,
		ExpirationMillis: 60_000,
		BcryptCost:       bcrypt.MinCost,
	}, service.AuthDependencies{Users: failingStore{}})
	require.NoError(t, err)

	token, err := svc.TokenManager().Issue("alice")
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, service.ErrUnauthenticated)
}

func TestIntrospect(t *testing.T) {
	f := newFixture(t, 1000)
	token, err := f.svc.TokenManager().Issue("alice")
	require.NoError(t, err)

	status := f.svc.Introspect(token)
	assert.Equal(t, domain.TokenStatus{Valid: true, Expired: false, Active: true, Subject: "alice"}, status)

	f.clock.Advance(2 * time.Second)
	status = f.svc.Introspect(token)
	assert.Equal(t, domain.TokenStatus{Valid: true, Expired: true, Active: false, Subject: "alice"}, status)

	status = f.svc.Introspect("garbage")
	assert.Equal(t, domain.TokenStatus{Valid: false, Expired: true, Active: false}, status)
}
