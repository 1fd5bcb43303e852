// Package usersync reconciles identities from the identity provider into the
// local user store. Reconciliation is one-way and create-only: a local record
// that already exists for an email is never modified.
package usersync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"waste_ops_backend/internal/common"
	"waste_ops_backend/internal/identity"
	"waste_ops_backend/internal/user"

	"go.uber.org/zap"
)

// LocalStore is the part of the user service the engine writes through.
// GetUserByEmail returns common.ErrNotFound for an unknown email and
// CreateUser returns common.ErrConflict on a uniqueness violation.
type LocalStore interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	CreateUser(ctx context.Context, u *user.User) error
}

// Reconciler runs one reconciliation.
type Reconciler interface {
	Reconcile(ctx context.Context) (SyncOutcome, error)
}

// Engine walks the remote identity list in provider order and creates the
// local records that are missing. Runs are not serialized; the store's unique
// email index keeps concurrent runs from creating duplicates.
type Engine struct {
	provider identity.Provider
	roles    *RoleResolver
	store    LocalStore
	metrics  *Metrics
	logger   *zap.Logger
}

var _ Reconciler = (*Engine)(nil)

func NewEngine(provider identity.Provider, roles *RoleResolver, store LocalStore, metrics *Metrics, logger *zap.Logger) *Engine {
	return &Engine{
		provider: provider,
		roles:    roles,
		store:    store,
		metrics:  metrics,
		logger:   logger.Named("UserSync"),
	}
}

// Reconcile fetches every remote identity and processes each one
// independently. Only a failure of the bulk fetch is returned as an error;
// per-identity failures are counted in the outcome.
func (e *Engine) Reconcile(ctx context.Context) (SyncOutcome, error) {
	identities, err := e.provider.ListIdentities(ctx)
	if err != nil {
		e.logger.Error("Failed to fetch identities from provider", zap.Error(err))
		return SyncOutcome{}, fmt.Errorf("fetching remote identities: %w", err)
	}

	var outcome SyncOutcome
	if len(identities) == 0 {
		e.logger.Warn("Identity provider returned no users; check realm and client configuration")
		outcome.Empty = true
		return outcome, nil
	}

	e.logger.Info("Starting user reconciliation", zap.Int("identities", len(identities)))
	for _, ri := range identities {
		res := e.reconcileOne(ctx, ri)
		outcome.add(res)
		e.metrics.RecordResult(ctx, res.Status)
	}

	e.logger.Info("User reconciliation finished",
		zap.Int("created", outcome.Created),
		zap.Int("skipped", outcome.Skipped),
		zap.Int("errored", outcome.Errored),
	)
	return outcome, nil
}

// reconcileOne never panics or returns an error past the record boundary.
func (e *Engine) reconcileOne(ctx context.Context, ri identity.RemoteIdentity) (res RecordResult) {
	log := e.logger.With(
		zap.String("remoteID", ri.ID),
		zap.String("username", ri.Username),
		zap.String("email", ri.Email),
	)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while syncing identity", zap.Any("panic", r))
			res = RecordResult{Status: RecordErrored, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	email := user.NormalizeEmail(ri.Email)
	if email == "" {
		log.Warn("Skipping identity without email")
		return RecordResult{Status: RecordSkipped, Err: ErrMissingEmail}
	}

	_, err := e.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		log.Debug("Local user already exists, skipping")
		return RecordResult{Status: RecordSkipped}
	case !errors.Is(err, common.ErrNotFound):
		log.Error("Failed to look up local user", zap.Error(err))
		return RecordResult{Status: RecordErrored, Err: err}
	}

	u := &user.User{
		UserName:        userNameFor(ri.Username, email),
		Email:           email,
		FirstName:       ri.FirstName,
		LastName:        ri.LastName,
		Role:            e.roles.ResolveRole(ctx, ri.ID),
		IsActive:        ri.Enabled,
		FaceAuthEnabled: false,
	}
	if err := e.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, common.ErrConflict) {
			log.Warn("Local user created concurrently or user name taken", zap.Error(err))
		} else {
			log.Error("Failed to create local user", zap.Error(err))
		}
		return RecordResult{Status: RecordErrored, Err: err}
	}

	log.Info("Created local user", zap.String("userID", u.ID.String()), zap.String("role", string(u.Role)))
	return RecordResult{Status: RecordCreated}
}

// userNameFor prefers the remote username and falls back to the local part
// of the email.
func userNameFor(remoteUsername, email string) string {
	if name := strings.TrimSpace(remoteUsername); name != "" {
		return name
	}
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
