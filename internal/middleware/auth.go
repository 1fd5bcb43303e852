package middleware

import (
	"context"
	"errors"

	"waste_ops_backend/internal/common"
	"waste_ops_backend/internal/identity"
	"waste_ops_backend/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserLookup resolves the local account behind a verified token.
type UserLookup interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
}

// AuthMiddleware validates the bearer token with the identity provider and
// loads the matching local user. Requests from identities that have not been
// synchronized yet are rejected.
func AuthMiddleware(verifier identity.TokenVerifier, users UserLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := common.GetTokenFromContext(c)
		if token == "" {
			logger.Debug("Bearer token missing or malformed")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header must be 'Bearer <token>'."))
			return
		}

		claims, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				logger.Debug("Token rejected by identity provider", zap.Error(err))
				common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Invalid or expired token."))
				return
			}
			logger.Error("Token verification failed", zap.Error(err))
			common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails("Identity provider unavailable."))
			return
		}
		if claims.Email == "" {
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Token carries no email claim."))
			return
		}

		u, err := users.GetUserByEmail(c.Request.Context(), claims.Email)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				logger.Info("Authenticated identity has no local account", zap.String("subject", claims.Subject))
				common.RespondWithError(c, common.ErrForbidden.WithDetails("Account not provisioned yet."))
				return
			}
			common.RespondWithError(c, err)
			return
		}
		if !u.IsActive {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("Account is disabled."))
			return
		}

		c.Set(common.UserIDKey, u.ID)
		c.Set(common.UserEmailKey, u.Email)
		c.Set(common.UserRoleKey, string(u.Role))

		logger.Debug("User authenticated",
			zap.String("userID", u.ID.String()),
			zap.String("role", string(u.Role)),
		)
		c.Next()
	}
}

// RoleAuthMiddleware allows the request only if the authenticated user has one of allowedRoles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := common.GetUserRoleFromContext(c)
		if userRole == "" {
			common.RespondWithError(c, common.ErrForbidden.WithDetails("User role not found in context."))
			return
		}

		for _, role := range allowedRoles {
			if userRole == role {
				c.Next()
				return
			}
		}
		common.RespondWithError(c, common.ErrForbidden.WithDetails("You do not have sufficient permissions for this resource."))
	}
}
