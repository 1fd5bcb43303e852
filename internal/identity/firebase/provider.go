// Package firebase implements identity.Provider and identity.TokenVerifier on
// top of the Firebase Admin SDK. Realm roles are read from the "roles" (or
// single "role") custom claim.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/errorutils"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"waste_ops_backend/internal/config"
	"waste_ops_backend/internal/identity"
)

// Provider reads identities from Firebase Authentication.
type Provider struct {
	authClient *auth.Client
	logger     *zap.Logger
}

var (
	_ identity.Provider      = (*Provider)(nil)
	_ identity.TokenVerifier = (*Provider)(nil)
)

// NewProvider initializes the Firebase Admin SDK from the configured
// service-account key.
func NewProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Provider, error) {
	logger = logger.Named("FirebaseProvider")
	if cfg.FirebaseServiceAccountKeyPath == "" {
		return nil, fmt.Errorf("firebase service account key path is required")
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		logger.Error("Failed to get Firebase Auth client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Auth client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &Provider{authClient: authClient, logger: logger}, nil
}

// ListIdentities walks every Firebase user page by page.
func (p *Provider) ListIdentities(ctx context.Context) ([]identity.RemoteIdentity, error) {
	var identities []identity.RemoteIdentity
	it := p.authClient.Users(ctx, "")
	for {
		u, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing firebase users: %w", classify(err))
		}
		identities = append(identities, toRemoteIdentity(u.UserRecord))
	}
	p.logger.Debug("Fetched firebase users", zap.Int("count", len(identities)))
	return identities, nil
}

// RealmRoles returns the role claims stored on the user's custom claims.
func (p *Provider) RealmRoles(ctx context.Context, remoteID string) ([]string, error) {
	u, err := p.authClient.GetUser(ctx, remoteID)
	if err != nil {
		return nil, fmt.Errorf("fetching firebase user %s: %w", remoteID, classify(err))
	}
	return rolesFromClaims(u.CustomClaims), nil
}

// VerifyToken verifies a Firebase ID token.
func (p *Provider) VerifyToken(ctx context.Context, token string) (*identity.TokenClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", identity.ErrInvalidToken)
	}
	t, err := p.authClient.VerifyIDToken(ctx, token)
	if err != nil {
		p.logger.Warn("Firebase ID token verification failed", zap.Error(err))
		if auth.IsIDTokenInvalid(err) || auth.IsIDTokenExpired(err) || auth.IsIDTokenRevoked(err) || auth.IsUserDisabled(err) {
			return nil, fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
		}
		return nil, classify(err)
	}
	claims := &identity.TokenClaims{Subject: t.UID}
	if email, ok := t.Claims["email"].(string); ok {
		claims.Email = email
	}
	return claims, nil
}

func toRemoteIdentity(u *auth.UserRecord) identity.RemoteIdentity {
	ri := identity.RemoteIdentity{Enabled: !u.Disabled}
	if u.UserInfo != nil {
		ri.ID = u.UID
		ri.Email = u.Email
		ri.FirstName, ri.LastName = splitDisplayName(u.DisplayName)
	}
	if name, ok := u.CustomClaims["username"].(string); ok {
		ri.Username = name
	}
	return ri
}

func splitDisplayName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, ' '); i >= 0 {
		return name[:i], strings.TrimSpace(name[i+1:])
	}
	return name, ""
}

func rolesFromClaims(claims map[string]interface{}) []string {
	var roles []string
	switch v := claims["roles"].(type) {
	case []interface{}:
		for _, r := range v {
			if s, ok := r.(string); ok {
				roles = append(roles, s)
			}
		}
	case []string:
		roles = append(roles, v...)
	}
	if s, ok := claims["role"].(string); ok && s != "" {
		roles = append(roles, s)
	}
	return roles
}

func classify(err error) error {
	switch {
	case auth.IsUserNotFound(err):
		return fmt.Errorf("%w: %v", identity.ErrNotFound, err)
	case errorutils.IsUnavailable(err), errorutils.IsDeadlineExceeded(err), errorutils.IsInternal(err),
		errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", identity.ErrConnectivity, err)
	default:
		return fmt.Errorf("%w: %v", identity.ErrUnexpectedResponse, err)
	}
}
