// Package keycloak implements identity.Provider against the Keycloak admin
// REST API, authenticating as a confidential client (client credentials grant).
package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"waste_ops_backend/internal/config"
	"waste_ops_backend/internal/identity"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	defaultPageSize = 100
	defaultTimeout  = 10 * time.Second
	// maxResponseSize caps how much of a response body is read (10MB).
	maxResponseSize = 10 * 1024 * 1024
	userAgent       = "waste-ops-backend/1.0"
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	Realm        string
	AdminRealm   string
	ClientID     string
	ClientSecret string
	PageSize     int
	Timeout      time.Duration
	// IssuerURL is the "iss" of tokens handed to callers. Defaults to
	// {BaseURL}/realms/{Realm}; set it when clients reach Keycloak through
	// a different hostname than this service does.
	IssuerURL string
}

// Client talks to one Keycloak realm.
type Client struct {
	baseURL  string
	realm    string
	pageSize int
	issuer   string
	admin    *http.Client // carries the client-credentials token
	verifier *oidc.IDTokenVerifier
	logger   *zap.Logger
}

var (
	_ identity.Provider      = (*Client)(nil)
	_ identity.TokenVerifier = (*Client)(nil)
)

// New builds a Client from application config.
func New(cfg *config.Config, logger *zap.Logger) *Client {
	return NewWithOptions(Options{
		BaseURL:      cfg.KeycloakBaseURL,
		Realm:        cfg.KeycloakRealm,
		AdminRealm:   cfg.KeycloakAdminRealm,
		ClientID:     cfg.KeycloakClientID,
		ClientSecret: cfg.KeycloakClientSecret,
		PageSize:     cfg.KeycloakPageSize,
		Timeout:      cfg.IdentityHTTPTimeout,
		IssuerURL:    cfg.KeycloakIssuerURL,
	}, logger)
}

// NewWithOptions builds a Client from explicit options.
func NewWithOptions(opts Options, logger *zap.Logger) *Client {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.AdminRealm == "" {
		opts.AdminRealm = opts.Realm
	}

	plain := &http.Client{Timeout: opts.Timeout}

	cc := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", opts.BaseURL, url.PathEscape(opts.AdminRealm)),
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	// The token source fetches tokens with the client stored in this context.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, plain)
	admin := cc.Client(tokenCtx)
	admin.Timeout = opts.Timeout

	issuer := strings.TrimRight(opts.IssuerURL, "/")
	if issuer == "" {
		issuer = fmt.Sprintf("%s/realms/%s", opts.BaseURL, url.PathEscape(opts.Realm))
	}
	// Keys are fetched from the internal base URL lazily and cached by kid.
	jwksURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", opts.BaseURL, url.PathEscape(opts.Realm))
	keySet := oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), plain), jwksURL)
	verifier := oidc.NewVerifier(issuer, keySet, &oidc.Config{SkipClientIDCheck: true})

	return &Client{
		baseURL:  opts.BaseURL,
		realm:    opts.Realm,
		pageSize: opts.PageSize,
		issuer:   issuer,
		admin:    admin,
		verifier: verifier,
		logger:   logger.Named("KeycloakClient"),
	}
}

type userRepresentation struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Enabled   bool   `json:"enabled"`
}

type roleRepresentation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListIdentities pages through every user of the realm.
func (c *Client) ListIdentities(ctx context.Context) ([]identity.RemoteIdentity, error) {
	var identities []identity.RemoteIdentity
	for first := 0; ; first += c.pageSize {
		q := url.Values{}
		q.Set("first", strconv.Itoa(first))
		q.Set("max", strconv.Itoa(c.pageSize))
		q.Set("briefRepresentation", "false")
		endpoint := fmt.Sprintf("%s/admin/realms/%s/users?%s", c.baseURL, url.PathEscape(c.realm), q.Encode())

		var page []userRepresentation
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("listing keycloak users (first=%d): %w", first, err)
		}
		for _, u := range page {
			identities = append(identities, identity.RemoteIdentity{
				ID:        u.ID,
				Username:  u.Username,
				Email:     u.Email,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				Enabled:   u.Enabled,
			})
		}
		if len(page) < c.pageSize {
			break
		}
	}
	c.logger.Debug("Fetched keycloak users", zap.Int("count", len(identities)))
	return identities, nil
}

// Ping checks that the admin API is reachable with our credentials by
// asking for the user count.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/admin/realms/%s/users/count", c.baseURL, url.PathEscape(c.realm))
	var count int
	return c.getJSON(ctx, endpoint, &count)
}

// RealmRoles returns the effective realm roles of a user, composites included.
func (c *Client) RealmRoles(ctx context.Context, remoteID string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/admin/realms/%s/users/%s/role-mappings/realm/composite",
		c.baseURL, url.PathEscape(c.realm), url.PathEscape(remoteID))

	var roles []roleRepresentation
	if err := c.getJSON(ctx, endpoint, &roles); err != nil {
		return nil, fmt.Errorf("fetching realm roles for %s: %w", remoteID, err)
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

// VerifyToken checks a caller's access token against the realm signing keys.
// Access tokens carry the realm's "account" audience rather than our client
// id, so the audience check is skipped; issuer, signature and expiry are not.
func (c *Client) VerifyToken(ctx context.Context, token string) (*identity.TokenClaims, error) {
	idToken, err := c.verifier.Verify(ctx, token)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", identity.ErrConnectivity, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: decoding token claims: %v", identity.ErrInvalidToken, err)
	}
	if idToken.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", identity.ErrInvalidToken)
	}
	return &identity.TokenClaims{Subject: idToken.Subject, Email: claims.Email}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.admin.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(resp.StatusCode, req.URL.Path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return fmt.Errorf("%w: reading response body: %v", identity.ErrConnectivity, err)
	}
	if len(body) > maxResponseSize {
		return fmt.Errorf("%w: response exceeds %d bytes", identity.ErrUnexpectedResponse, maxResponseSize)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s: %v", identity.ErrUnexpectedResponse, req.URL.Path, err)
	}
	return nil
}

// classifyTransportError separates "could not reach the provider" from
// "the provider refused our client credentials".
func classifyTransportError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode < http.StatusInternalServerError {
		return fmt.Errorf("%w: token request rejected: %v", identity.ErrUnexpectedResponse, err)
	}
	return fmt.Errorf("%w: %v", identity.ErrConnectivity, err)
}
