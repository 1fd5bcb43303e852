package user

import (
	"context"
	"errors"
	"fmt"

	"waste_ops_backend/internal/common"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the application-facing view of the local user store.
type Service interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByUserName(ctx context.Context, userName string) (*User, error)
	ListUsers(ctx context.Context, page, pageSize int) ([]User, *common.Pagination, error)
	SearchUsers(ctx context.Context, query string, page, pageSize int) ([]Document, *common.Pagination, error)
	ReindexAll(ctx context.Context, batchSize int, refresh string) (ReindexResult, error)
}

// ReindexResult summarizes a full reindex of the users search index.
type ReindexResult struct {
	Indexed int
	Failed  int
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo     Repository
	index    SearchIndex // nil when search is disabled
	validate *validator.Validate
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new user service. index may be nil.
func NewService(repo Repository, index SearchIndex, logger *zap.Logger) *ServiceImplementation {
	return &ServiceImplementation{
		repo:     repo,
		index:    index,
		validate: validator.New(),
		logger:   logger.Named("UserService"),
	}
}

// CreateUser validates and inserts a new user, then indexes it for search.
// A failed index write is logged and does not fail the create.
func (s *ServiceImplementation) CreateUser(ctx context.Context, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleUser
	}
	if err := s.validate.Struct(u); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return common.NewValidationAPIError(common.FormatValidationErrors(ve))
		}
		return fmt.Errorf("validating user: %w", err)
	}

	if err := s.repo.Create(ctx, u); err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.IndexUser(ctx, ToDocument(u)); err != nil {
			s.logger.Warn("Failed to index created user", zap.String("userID", u.ID.String()), zap.Error(err))
		}
	}
	return nil
}

func (s *ServiceImplementation) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ServiceImplementation) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, email)
}

func (s *ServiceImplementation) GetUserByUserName(ctx context.Context, userName string) (*User, error) {
	return s.repo.FindByUserName(ctx, userName)
}

// ListUsers returns one page of local users.
func (s *ServiceImplementation) ListUsers(ctx context.Context, page, pageSize int) ([]User, *common.Pagination, error) {
	users, total, err := s.repo.List(ctx, common.Offset(page, pageSize), pageSize)
	if err != nil {
		s.logger.Error("Failed to list users", zap.Error(err))
		return nil, nil, fmt.Errorf("listing users: %w", err)
	}
	return users, common.NewPagination(total, page, pageSize), nil
}

// SearchUsers runs a full-text query against the users index.
func (s *ServiceImplementation) SearchUsers(ctx context.Context, query string, page, pageSize int) ([]Document, *common.Pagination, error) {
	if s.index == nil {
		return nil, nil, common.ErrServiceUnavailable.WithDetails("User search is not enabled.")
	}
	docs, total, err := s.index.Search(ctx, query, common.Offset(page, pageSize), pageSize)
	if err != nil {
		s.logger.Error("User search failed", zap.String("query", query), zap.Error(err))
		return nil, nil, fmt.Errorf("searching users: %w", err)
	}
	return docs, common.NewPagination(total, page, pageSize), nil
}

// ReindexAll pushes every local user into the search index in batches.
func (s *ServiceImplementation) ReindexAll(ctx context.Context, batchSize int, refresh string) (ReindexResult, error) {
	var result ReindexResult
	if s.index == nil {
		return result, common.ErrServiceUnavailable.WithDetails("User search is not enabled.")
	}
	if batchSize <= 0 {
		batchSize = common.DefaultPageSize
	}

	for offset, batch := 0, 1; ; batch++ {
		users, _, err := s.repo.List(ctx, offset, batchSize)
		if err != nil {
			return result, fmt.Errorf("fetching batch %d: %w", batch, err)
		}
		if len(users) == 0 {
			break
		}

		docs := make([]Document, 0, len(users))
		for i := range users {
			docs = append(docs, ToDocument(&users[i]))
		}
		indexed, failed, err := s.index.BulkIndex(ctx, docs, refresh)
		if err != nil {
			s.logger.Error("Bulk index request failed", zap.Int("batch", batch), zap.Error(err))
			failed = len(docs)
			indexed = 0
		}
		result.Indexed += indexed
		result.Failed += failed
		s.logger.Info("Batch processed.",
			zap.Int("batch", batch),
			zap.Int("indexed", indexed),
			zap.Int("failed", failed),
		)

		offset += len(users)
		if len(users) < batchSize {
			break
		}
	}

	if result.Failed > 0 {
		return result, fmt.Errorf("%d users failed to index", result.Failed)
	}
	return result, nil
}
