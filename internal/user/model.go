// File: internal/user/model.go
package user

import (
	"time"

	"waste_ops_backend/internal/common"

	"github.com/google/uuid"
)

// Role is the coarse-grained local role of a user.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// User is the local user record. Email is the business key used to match
// identities coming from the identity provider.
type User struct {
	common.BaseModel
	UserName        string  `gorm:"column:user_name;type:varchar(100);uniqueIndex;not null" validate:"required,max=100"`
	Email           string  `gorm:"type:varchar(255);uniqueIndex;not null" validate:"required,email,max=255"`
	FirstName       string  `gorm:"type:varchar(100)" validate:"max=100"`
	LastName        string  `gorm:"type:varchar(100)" validate:"max=100"`
	Role            Role    `gorm:"type:varchar(20);not null;default:'User'" validate:"oneof=User Admin"`
	IsActive        bool    `gorm:"not null"`
	FaceAuthEnabled bool    `gorm:"not null"`
	ProfileImage    *string `gorm:"type:text"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the Admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserResponse defines the structure for user data sent in API responses.
type UserResponse struct {
	ID              uuid.UUID `json:"id"`
	UserName        string    `json:"userName"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName,omitempty"`
	LastName        string    `json:"lastName,omitempty"`
	Role            Role      `json:"role"`
	IsActive        bool      `json:"isActive"`
	FaceAuthEnabled bool      `json:"faceAuthEnabled"`
	ProfileImage    *string   `json:"profileImage,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ToUserResponse converts a User model to a UserResponse DTO.
func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		UserName:        u.UserName,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		IsActive:        u.IsActive,
		FaceAuthEnabled: u.FaceAuthEnabled,
		ProfileImage:    u.ProfileImage,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// ToUserResponses converts a slice of users.
func ToUserResponses(users []User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, ToUserResponse(&users[i]))
	}
	return out
}
