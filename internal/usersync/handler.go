package usersync

import (
	"context"
	"net/http"

	"waste_ops_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrUserSyncFailed is returned to operators when a manual run could not
// complete. It carries no internal details.
var ErrUserSyncFailed = common.NewAPIError(http.StatusInternalServerError, "USER_SYNC_FAILED", "User sync failed. Check server logs for details.")

// ManualRunner runs the manual reconciliation path.
type ManualRunner interface {
	RunManual(ctx context.Context) (SyncOutcome, error)
}

// SyncSummary is the data payload of a successful manual run.
type SyncSummary struct {
	Created int  `json:"created"`
	Skipped int  `json:"skipped"`
	Errored int  `json:"errored"`
	Total   int  `json:"total"`
	Empty   bool `json:"empty"`
}

// Handler serves the administrative sync endpoint.
type Handler struct {
	runner ManualRunner
	logger *zap.Logger
}

func NewHandler(runner ManualRunner, logger *zap.Logger) *Handler {
	return &Handler{runner: runner, logger: logger.Named("UserSyncHandler")}
}

// RegisterRoutes mounts POST /admin/sync/users behind authMW and adminMW.
// /admin/sync-users is kept as an alias for older clients.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	admin := router.Group("/admin", authMW, adminMW)
	admin.POST("/sync/users", h.syncUsers)
	admin.POST("/sync-users", h.syncUsers)
}

func (h *Handler) syncUsers(c *gin.Context) {
	h.logger.Info("Manual user sync requested", zap.String("requestedBy", common.GetUserEmailFromContext(c)))

	outcome, err := h.runner.RunManual(c.Request.Context())
	if err != nil {
		h.logger.Error("Manual user sync failed", zap.Error(err))
		common.RespondWithError(c, ErrUserSyncFailed)
		return
	}

	common.RespondOK(c, outcome.Message(), SyncSummary{
		Created: outcome.Created,
		Skipped: outcome.Skipped,
		Errored: outcome.Errored,
		Total:   outcome.Total(),
		Empty:   outcome.Empty,
	})
}
