package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sliceops/sliceops/internal/models"
	"github.com/sliceops/sliceops/internal/server/storage"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()

	st, err := New(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func newTestUser() *models.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.User{
		ID:           uuid.New().String(),
		Name:         "Olga",
		Email:        "olga@sliceops.local",
		PasswordHash: "argon2id$c2FsdA$aGFzaA",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestStorage_CreateAndGetUser(t *testing.T) {
	st := setupTestStorage(t)
	ctx := context.Background()

	user := newTestUser()
	require.NoError(t, st.CreateUser(ctx, user))

	byEmail, err := st.GetUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, user.Name, byEmail.Name)
	assert.Equal(t, user.PasswordHash, byEmail.PasswordHash)
	assert.Nil(t, byEmail.EmailVerifiedAt)
	assert.Nil(t, byEmail.LastLogin)

	byID, err := st.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
}

func TestStorage_CreateUser_DuplicateEmail(t *testing.T) {
	st := setupTestStorage(t)
	ctx := context.Background()

	user := newTestUser()
	require.NoError(t, st.CreateUser(ctx, user))

	dup := newTestUser()
	dup.ID = uuid.New().String()

	err := st.CreateUser(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrUserAlreadyExists)
}

func TestStorage_GetUser_NotFound(t *testing.T) {
	st := setupTestStorage(t)
	ctx := context.Background()

	_, err := st.GetUserByEmail(ctx, "ghost@sliceops.local")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = st.GetUserByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestStorage_UpdateUser_OTPAndVerification(t *testing.T) {
	st := setupTestStorage(t)
	ctx := context.Background()

	user := newTestUser()
	require.NoError(t, st.CreateUser(ctx, user))

	otpExpiry := time.Now().UTC().Add(10 * time.Minute).Truncate(time.Second)
	user.OTPHash = "argon2id$b3Rw$aGFzaA"
	user.OTPPurpose = models.OTPPurposeVerifyEmail
	user.OTPExpiresAt = &otpExpiry
	user.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, st.UpdateUser(ctx, user))

	got, err := st.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.OTPHash, got.OTPHash)
	assert.Equal(t, models.OTPPurposeVerifyEmail, got.OTPPurpose)
	require.NotNil(t, got.OTPExpiresAt)
	assert.True(t, got.HasActiveOTP(models.OTPPurposeVerifyEmail, time.Now()))

	// Подтверждаем email и гасим OTP
	verifiedAt := time.Now().UTC().Truncate(time.Second)
	user.EmailVerifiedAt = &verifiedAt
	user.OTPHash = ""
	user.OTPPurpose = ""
	user.OTPExpiresAt = nil
	require.NoError(t, st.UpdateUser(ctx, user))

	got, err = st.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsVerified())
	assert.False(t, got.HasActiveOTP(models.OTPPurposeVerifyEmail, time.Now()))
}

func TestStorage_UpdateUser_NotFound(t *testing.T) {
	st := setupTestStorage(t)

	user := newTestUser()
	err := st.UpdateUser(context.Background(), user)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestStorage_UpdateLastLogin(t *testing.T) {
	st := setupTestStorage(t)
	ctx := context.Background()

	user := newTestUser()
	require.NoError(t, st.CreateUser(ctx, user))

	loginTime := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, st.UpdateLastLogin(ctx, user.ID, loginTime))

	got, err := st.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.Equal(t, loginTime.Unix(), got.LastLogin.Unix())

	assert.ErrorIs(t, st.UpdateLastLogin(ctx, "no-such-id", loginTime), storage.ErrUserNotFound)
}
