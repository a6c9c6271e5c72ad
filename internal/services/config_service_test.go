package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
	"trohub/app/internal/utils"
)

func TestConfigService_CRUD(t *testing.T) {
	database := utils.SetupTestDB(t, "trohub_test_config_crud", configCollection, apiConfigCollection)
	cfg := &config.Config{AppName: "TroHub", InvoiceCodePrefix: "HD", DefaultPaymentDay: 5}
	ctx := context.Background()
	svc := NewConfigService(ctx, database, cfg, nil)

	require.NoError(t, svc.SetConfigValue(ctx, "SUPPORT_PHONE", "0905000111", true))
	val, err := svc.Get(ctx, "SUPPORT_PHONE")
	require.NoError(t, err)
	assert.Equal(t, "0905000111", val)

	_, err = svc.Get(ctx, "does_not_exist")
	assert.Error(t, err)

	require.NoError(t, svc.SetConfigValue(ctx, "DEFAULT_PAYMENT_DAY", 10, false))
	require.NoError(t, svc.SetConfigValue(ctx, "SMS_REMINDERS_ENABLED", true, false))
	require.NoError(t, svc.SetConfigValue(ctx, "REMINDER_GAP_SECONDS", int64(3600), false))

	// A fresh instance sees what the first one stored.
	reloaded := NewConfigService(ctx, database, cfg, nil)
	assert.Equal(t, 10, reloaded.GetInt(ctx, "DEFAULT_PAYMENT_DAY", 0))
	assert.True(t, reloaded.GetBool(ctx, "SMS_REMINDERS_ENABLED", false))
	assert.Equal(t, time.Hour, reloaded.GetDuration(ctx, "REMINDER_GAP_SECONDS", 0))

	var stored models.ConfigEntry
	require.NoError(t, database.Collection(configCollection).FindOne(ctx, bson.M{"_id": "SUPPORT_PHONE"}).Decode(&stored))
	assert.True(t, stored.IsPublic)

	assert.Error(t, svc.SetConfigValue(ctx, "", "x", true))
}

func TestConfigService_Defaults(t *testing.T) {
	database := utils.SetupTestDB(t, "trohub_test_config_defaults", configCollection, apiConfigCollection)
	cfg := &config.Config{AppName: "TroHub", InvoiceCodePrefix: "HD", DefaultPaymentDay: 5}
	ctx := context.Background()
	svc := NewConfigService(ctx, database, cfg, nil)

	assert.Equal(t, "HD", svc.GetString(ctx, "INVOICE_CODE_PREFIX", "XX"))
	assert.Equal(t, 5, svc.GetInt(ctx, "DEFAULT_PAYMENT_DAY", 1))
	assert.Equal(t, 42, svc.GetInt(ctx, "notfound", 42))
	assert.False(t, svc.GetBool(ctx, "notfound", false))
	assert.Equal(t, 5*time.Second, svc.GetDuration(ctx, "notfound", 5*time.Second))

	require.NoError(t, svc.SetConfigValue(ctx, "HIDDEN", "x", false))
	pub, err := svc.GetAllPublic(ctx)
	require.NoError(t, err)
	assert.Equal(t, "TroHub", pub["APP_NAME"])
	assert.NotContains(t, pub, "HIDDEN")

	// Wrong types fall back to the default.
	require.NoError(t, svc.SetConfigValue(ctx, "APP_NAME", 7, true))
	assert.Equal(t, "fallback", svc.GetString(ctx, "APP_NAME", "fallback"))
}

func TestConfigService_APIEndpointConfig(t *testing.T) {
	database := utils.SetupTestDB(t, "trohub_test_config_endpoints", configCollection, apiConfigCollection)
	ctx := context.Background()
	_, err := database.Collection(apiConfigCollection).InsertOne(ctx, models.APIEndpointConfig{
		Base:          models.Base{ID: utils.NewSixID()},
		Endpoint:      "POST /api/auth/login",
		RateLimitAnon: &models.RateLimitConfig{BucketSize: 5, TokenRefillRate: 1},
	})
	require.NoError(t, err)
	_, err = database.Collection(apiConfigCollection).InsertOne(ctx, models.APIEndpointConfig{
		Base:          models.Base{ID: utils.NewSixID()},
		Endpoint:      "POST /api/auto-invoice",
		RateLimitAnon: &models.RateLimitConfig{BucketSize: 1, TokenRefillRate: 1},
		RateLimitAuth: &models.RateLimitConfig{BucketSize: 3, TokenRefillRate: 1},
	})
	require.NoError(t, err)

	svc := NewConfigService(ctx, database, &config.Config{}, nil)

	login := svc.GetAPIEndpointConfig(ctx, "POST /api/auth/login", true)
	require.NotNil(t, login)
	assert.Equal(t, 5, login.BucketSize, "authenticated callers fall back to the anonymous limit")

	run := svc.GetAPIEndpointConfig(ctx, "POST /api/auto-invoice", true)
	require.NotNil(t, run)
	assert.Equal(t, 3, run.BucketSize)

	assert.Nil(t, svc.GetAPIEndpointConfig(ctx, "GET /api/phong", false))
}
