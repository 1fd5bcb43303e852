package firebase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"

	"waste_ops_backend/internal/identity"
)

func TestToRemoteIdentity(t *testing.T) {
	u := &auth.UserRecord{
		UserInfo:     &auth.UserInfo{UID: "fb-1", Email: "crew@ops.io", DisplayName: "Ana Maria Silva"},
		Disabled:     true,
		CustomClaims: map[string]interface{}{"username": "ana"},
	}

	got := toRemoteIdentity(u)
	assert.Equal(t, identity.RemoteIdentity{
		ID:        "fb-1",
		Username:  "ana",
		Email:     "crew@ops.io",
		FirstName: "Ana",
		LastName:  "Maria Silva",
		Enabled:   false,
	}, got)
}

func TestToRemoteIdentity_NoUsernameClaim(t *testing.T) {
	got := toRemoteIdentity(&auth.UserRecord{UserInfo: &auth.UserInfo{UID: "fb-2", Email: "x@y.io"}})
	assert.Empty(t, got.Username)
	assert.True(t, got.Enabled)
}

func TestRolesFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]interface{}
		want   []string
	}{
		{"no claims", nil, nil},
		{"roles list", map[string]interface{}{"roles": []interface{}{"admin", 7, "dispatcher"}}, []string{"admin", "dispatcher"}},
		{"single role", map[string]interface{}{"role": "admin"}, []string{"admin"}},
		{"both", map[string]interface{}{"roles": []string{"driver"}, "role": "admin"}, []string{"driver", "admin"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rolesFromClaims(tt.claims))
		})
	}
}

func TestClassify_DeadlineIsConnectivity(t *testing.T) {
	err := classify(fmt.Errorf("get user: %w", context.DeadlineExceeded))
	assert.True(t, errors.Is(err, identity.ErrConnectivity))
}

func TestClassify_UnknownIsUnexpected(t *testing.T) {
	err := classify(errors.New("boom"))
	assert.True(t, errors.Is(err, identity.ErrUnexpectedResponse))
}
