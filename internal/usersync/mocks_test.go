package usersync

import (
	"context"
	"testing"

	"waste_ops_backend/internal/identity"
	"waste_ops_backend/internal/platform/database/dbtest"
	"waste_ops_backend/internal/user"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockProvider is a mock type for identity.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) ListIdentities(ctx context.Context) ([]identity.RemoteIdentity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.RemoteIdentity), args.Error(1)
}

func (m *MockProvider) RealmRoles(ctx context.Context, remoteID string) ([]string, error) {
	args := m.Called(ctx, remoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockStore is a mock type for LocalStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockStore) CreateUser(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

// MockRunner is a mock type for ManualRunner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunManual(ctx context.Context) (SyncOutcome, error) {
	args := m.Called(ctx)
	return args.Get(0).(SyncOutcome), args.Error(1)
}

// newSQLiteStore returns a real user service over an in-memory database.
func newSQLiteStore(t *testing.T) (user.Service, user.Repository) {
	t.Helper()
	repo := user.NewGORMRepository(dbtest.NewSQLite(t, &user.User{}))
	return user.NewService(repo, nil, zap.NewNop()), repo
}

func newTestEngine(provider identity.Provider, store LocalStore, metrics *Metrics) *Engine {
	logger := zap.NewNop()
	return NewEngine(provider, NewRoleResolver(provider, logger), store, metrics, logger)
}

func remote(id, username, email string) identity.RemoteIdentity {
	return identity.RemoteIdentity{ID: id, Username: username, Email: email, Enabled: true}
}
