// File: internal/user/handler.go
package user

import (
	"net/http"
	"strings"

	"waste_ops_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler serves the user endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new user handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.Named("UserHandler"),
	}
}

// RegisterRoutes sets up the routes for user operations. Every route requires
// authMW; creating a user additionally requires adminMW.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	userGroup := router.Group("/users", authMW)
	{
		userGroup.POST("", adminMW, h.createUser)
		userGroup.GET("", h.listUsers)
		userGroup.GET("/search", h.searchUsers)
		userGroup.GET("/email/:email", h.getUserByEmail)
		userGroup.GET("/username/:username", h.getUserByUserName)
		userGroup.GET("/:id", h.getUserByID)
	}
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	UserName     string  `json:"userName"`
	Email        string  `json:"email"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	Role         Role    `json:"role"`
	IsActive     *bool   `json:"isActive"`
	ProfileImage *string `json:"profileImage"`
}

func (h *Handler) createUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid create user request body", zap.Error(err))
		common.RespondWithError(c, common.ErrUnprocessableEntity.WithDetails("Request body must be a JSON user object."))
		return
	}

	usr := &User{
		UserName:     strings.TrimSpace(req.UserName),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         req.Role,
		IsActive:     req.IsActive == nil || *req.IsActive,
		ProfileImage: req.ProfileImage,
	}
	if err := h.service.CreateUser(c.Request.Context(), usr); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondSuccess(c, http.StatusCreated, "User created successfully.", ToUserResponse(usr))
}

func (h *Handler) listUsers(c *gin.Context) {
	page, pageSize := common.GetPaginationParams(c)
	users, pagination, err := h.service.ListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Users retrieved successfully.", ToUserResponses(users), pagination)
}

func (h *Handler) searchUsers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Query parameter 'q' is required."))
		return
	}
	page, pageSize := common.GetPaginationParams(c)
	docs, pagination, err := h.service.SearchUsers(c.Request.Context(), query, page, pageSize)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondPaginated(c, "Users retrieved successfully.", docs, pagination)
}

func (h *Handler) getUserByEmail(c *gin.Context) {
	usr, err := h.service.GetUserByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User retrieved successfully.", ToUserResponse(usr))
}

func (h *Handler) getUserByUserName(c *gin.Context) {
	usr, err := h.service.GetUserByUserName(c.Request.Context(), c.Param("username"))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User retrieved successfully.", ToUserResponse(usr))
}

func (h *Handler) getUserByID(c *gin.Context) {
	paramID := c.Param("id")
	id, err := uuid.Parse(paramID)
	if err != nil {
		h.logger.Warn("Invalid user ID format in URL parameter", zap.String("paramID", paramID), zap.Error(err))
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid user ID format."))
		return
	}
	usr, err := h.service.GetUserByID(c.Request.Context(), id)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User retrieved successfully.", ToUserResponse(usr))
}
