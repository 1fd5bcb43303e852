package usersync

import (
	"context"

	"waste_ops_backend/internal/identity"
	"waste_ops_backend/internal/user"

	"go.uber.org/zap"
)

// AdminRoleClaim is the realm role that grants the local Admin role.
// Matching is exact and case-sensitive.
const AdminRoleClaim = "admin"

// RoleFromClaims maps a realm role set to a local role.
func RoleFromClaims(claims []string) user.Role {
	for _, c := range claims {
		if c == AdminRoleClaim {
			return user.RoleAdmin
		}
	}
	return user.RoleUser
}

// RoleResolver derives the local role of a remote identity. It never fails:
// when the provider cannot answer, the identity gets user.RoleUser.
type RoleResolver struct {
	provider identity.Provider
	logger   *zap.Logger
}

func NewRoleResolver(provider identity.Provider, logger *zap.Logger) *RoleResolver {
	return &RoleResolver{provider: provider, logger: logger.Named("RoleResolver")}
}

// ResolveRole fetches the realm roles of remoteID and maps them.
func (r *RoleResolver) ResolveRole(ctx context.Context, remoteID string) user.Role {
	claims, err := r.provider.RealmRoles(ctx, remoteID)
	if err != nil {
		r.logger.Warn("Failed to fetch realm roles, defaulting to User role",
			zap.String("remoteID", remoteID),
			zap.Error(err),
		)
		return user.RoleUser
	}
	return RoleFromClaims(claims)
}
