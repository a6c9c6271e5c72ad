package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trohub/app/internal/api/middleware"
	"trohub/app/internal/auth"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", middleware.AuthMiddleware("secret"), func(c *gin.Context) {
		actor := middleware.ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"user": actor.UserID.String(), "owner": actor.OwnerID.String(), "role": actor.Role})
	})
	r.GET("/admin", middleware.AuthMiddleware("secret"), middleware.AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, user *models.User, secret string, ttl time.Duration) string {
	tok, err := auth.GenerateJWT(user, secret, ttl, time.Now())
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAuthMiddleware_Unauthorized(t *testing.T) {
	r := newAuthRouter()
	user := &models.User{Base: models.Base{ID: utils.NewSixID()}, Role: models.RoleLandlord}

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"garbage":      "Bearer not-a-jwt",
		"other secret": tokenFor(t, user, "other", time.Hour),
		"expired":      tokenFor(t, user, "secret", -time.Minute),
	} {
		t.Run(name, func(t *testing.T) {
			w := do(r, "/me", header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"message":"Unauthorized"}`, w.Body.String())
		})
	}
}

func TestAuthMiddleware_SetsActor(t *testing.T) {
	r := newAuthRouter()
	landlordID := utils.NewSixID()
	staff := &models.User{Base: models.Base{ID: utils.NewSixID()}, Role: models.RoleStaff, ManagerID: landlordID}

	w := do(r, "/me", tokenFor(t, staff, "secret", time.Hour))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, staff.ID.String(), body["user"])
	assert.Equal(t, landlordID.String(), body["owner"], "staff act for their landlord")
	assert.Equal(t, "staff", body["role"])
}

func TestAdminMiddleware(t *testing.T) {
	r := newAuthRouter()
	admin := &models.User{Base: models.Base{ID: utils.NewSixID()}, Role: models.RoleAdmin}
	landlord := &models.User{Base: models.Base{ID: utils.NewSixID()}, Role: models.RoleLandlord}

	assert.Equal(t, http.StatusNoContent, do(r, "/admin", tokenFor(t, admin, "secret", time.Hour)).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "/admin", tokenFor(t, landlord, "secret", time.Hour)).Code)
}
