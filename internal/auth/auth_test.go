package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

func TestJWT_RoundTrip(t *testing.T) {
	landlord := utils.NewSixID()
	user := &models.User{Base: models.Base{ID: utils.NewSixID()}, Role: models.RoleStaff, ManagerID: landlord}

	token, err := GenerateJWT(user, "secret", time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := ValidateJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, models.RoleStaff, claims.Role)
	assert.Equal(t, landlord.String(), claims.OwnerID)
	assert.False(t, claims.IsAdmin())
}

func TestJWT_Rejections(t *testing.T) {
	user := &models.User{Base: models.Base{ID: utils.NewSixID()}, Role: models.RoleAdmin}

	token, err := GenerateJWT(user, "secret", time.Hour, time.Now())
	require.NoError(t, err)
	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)

	expired, err := GenerateJWT(user, "secret", time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = ValidateJWT(expired, "secret")
	assert.Error(t, err)

	_, err = ValidateJWT("not.a.token", "secret")
	assert.Error(t, err)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("wrong horse", hash))

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
