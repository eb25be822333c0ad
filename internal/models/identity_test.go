package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlattenRolePermissions(t *testing.T) {
	roles := []Role{
		{
			Name:        "store_manager",
			Permissions: []string{"orders.view", "orders.refund", "staff.manage"},
		},
		{
			Name:        "shift_supervisor",
			Permissions: []string{"orders.view", "inventory.view"},
		},
	}

	flat := FlattenRolePermissions(roles)

	// Дубликаты схлопываются, порядок первого вхождения сохраняется
	assert.Equal(t, []string{"orders.view", "orders.refund", "staff.manage", "inventory.view"}, flat)
}

func TestFlattenRolePermissions_Empty(t *testing.T) {
	assert.Empty(t, FlattenRolePermissions(nil))
	assert.Empty(t, FlattenRolePermissions([]Role{{Name: "empty_role"}}))
}

func TestUser_IsVerified(t *testing.T) {
	u := &User{}
	assert.False(t, u.IsVerified())

	now := time.Now()
	u.EmailVerifiedAt = &now
	assert.True(t, u.IsVerified())
}

func TestUser_HasActiveOTP(t *testing.T) {
	now := time.Now()
	future := now.Add(10 * time.Minute)
	past := now.Add(-time.Minute)

	tests := []struct {
		name    string
		user    User
		purpose string
		want    bool
	}{
		{
			name:    "no otp issued",
			user:    User{},
			purpose: OTPPurposeVerifyEmail,
			want:    false,
		},
		{
			name: "active otp matching purpose",
			user: User{
				OTPHash:      "hash",
				OTPPurpose:   OTPPurposeVerifyEmail,
				OTPExpiresAt: &future,
			},
			purpose: OTPPurposeVerifyEmail,
			want:    true,
		},
		{
			name: "purpose mismatch",
			user: User{
				OTPHash:      "hash",
				OTPPurpose:   OTPPurposeVerifyEmail,
				OTPExpiresAt: &future,
			},
			purpose: OTPPurposeResetPassword,
			want:    false,
		},
		{
			name: "expired otp",
			user: User{
				OTPHash:      "hash",
				OTPPurpose:   OTPPurposeResetPassword,
				OTPExpiresAt: &past,
			},
			purpose: OTPPurposeResetPassword,
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.user.HasActiveOTP(tt.purpose, now))
		})
	}
}
