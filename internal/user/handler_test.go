package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"waste_ops_backend/internal/common"
	"waste_ops_backend/internal/platform/database/dbtest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupUserRouter(t *testing.T) (*gin.Engine, Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := NewService(NewGORMRepository(dbtest.NewSQLite(t, &User{})), nil, zap.NewNop())
	router := gin.New()
	passThrough := func(c *gin.Context) { c.Next() }
	NewHandler(svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"), passThrough, passThrough)
	return router, svc
}

func doGet(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_GetUserRoutes(t *testing.T) {
	router, svc := setupUserRouter(t)
	u := &User{UserName: "dispatcher", Email: "dispatch@ops.io", Role: RoleAdmin, IsActive: true}
	require.NoError(t, svc.CreateUser(context.Background(), u))

	for _, path := range []string{
		"/api/v1/users/" + u.ID.String(),
		"/api/v1/users/email/dispatch@ops.io",
		"/api/v1/users/username/dispatcher",
	} {
		w := doGet(router, path)
		require.Equal(t, http.StatusOK, w.Code, path)

		var body struct {
			Status string       `json:"status"`
			Data   UserResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "success", body.Status)
		assert.Equal(t, u.ID, body.Data.ID)
		assert.Equal(t, RoleAdmin, body.Data.Role)
	}
}

func TestHandler_GetUserByID_BadAndMissing(t *testing.T) {
	router, _ := setupUserRouter(t)

	assert.Equal(t, http.StatusBadRequest, doGet(router, "/api/v1/users/not-a-uuid").Code)
	assert.Equal(t, http.StatusNotFound, doGet(router, "/api/v1/users/email/ghost@ops.io").Code)
}

func TestHandler_ListUsers_Paginated(t *testing.T) {
	router, svc := setupUserRouter(t)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, svc.CreateUser(context.Background(), &User{UserName: name, Email: name + "@ops.io"}))
	}

	w := doGet(router, "/api/v1/users?page=2&page_size=2")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data       []UserResponse `json:"data"`
		Pagination struct {
			TotalItems int64 `json:"total_items"`
			HasPrev    bool  `json:"has_prev"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, int64(3), body.Pagination.TotalItems)
	assert.True(t, body.Pagination.HasPrev)
}

func TestHandler_Search(t *testing.T) {
	router, _ := setupUserRouter(t)

	assert.Equal(t, http.StatusBadRequest, doGet(router, "/api/v1/users/search").Code)
	assert.Equal(t, http.StatusServiceUnavailable, doGet(router, "/api/v1/users/search?q=crew").Code)
}

func doPost(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestHandler_CreateUser(t *testing.T) {
	router, svc := setupUserRouter(t)

	w := doPost(router, "/api/v1/users", `{"userName":"driver7","email":" Driver7@Ops.IO ","firstName":"Dee","lastName":"Seven"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		Status string       `json:"status"`
		Data   UserResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, "driver7@ops.io", body.Data.Email)
	assert.Equal(t, RoleUser, body.Data.Role)
	assert.True(t, body.Data.IsActive)

	stored, err := svc.GetUserByEmail(context.Background(), "driver7@ops.io")
	require.NoError(t, err)
	assert.Equal(t, body.Data.ID, stored.ID)
	assert.Equal(t, "Dee", stored.FirstName)
}

func TestHandler_CreateUser_Rejections(t *testing.T) {
	router, svc := setupUserRouter(t)
	require.NoError(t, svc.CreateUser(context.Background(), &User{UserName: "ana", Email: "ana@ops.io"}))

	tests := []struct {
		name string
		body string
		code int
		err  string
	}{
		{"duplicate email", `{"userName":"ana2","email":"ANA@ops.io"}`, http.StatusConflict, "CONFLICT"},
		{"duplicate user name", `{"userName":"ana","email":"other@ops.io"}`, http.StatusConflict, "CONFLICT"},
		{"malformed body", `{"userName":`, http.StatusUnprocessableEntity, "UNPROCESSABLE_ENTITY"},
		{"invalid email", `{"userName":"zed","email":"not-an-email"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"unknown role", `{"userName":"zed","email":"zed@ops.io","role":"Root"}`, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doPost(router, "/api/v1/users", tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())

			var apiErr common.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, tt.err, apiErr.Code)
		})
	}

	_, err := svc.GetUserByEmail(context.Background(), "zed@ops.io")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestHandler_CreateUser_RequiresAdminMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewService(NewGORMRepository(dbtest.NewSQLite(t, &User{})), nil, zap.NewNop())
	router := gin.New()
	passThrough := func(c *gin.Context) { c.Next() }
	deny := func(c *gin.Context) { common.RespondWithError(c, common.ErrForbidden) }
	NewHandler(svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"), passThrough, deny)

	assert.Equal(t, http.StatusForbidden, doPost(router, "/api/v1/users", `{"userName":"x","email":"x@ops.io"}`).Code)
	assert.Equal(t, http.StatusOK, doGet(router, "/api/v1/users").Code, "reads stay open to any authenticated user")
}
