package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"trohub/app/internal/config"
	"trohub/app/internal/models"
)

// IConfigService gives runtime access to settings stored in Mongo, falling
// back to the environment defaults.
type IConfigService interface {
	GetAllPublic(ctx context.Context) (map[string]interface{}, error)
	Get(ctx context.Context, key string) (interface{}, error)
	GetInt(ctx context.Context, key string, defaultValue int) int
	GetString(ctx context.Context, key string, defaultValue string) string
	GetBool(ctx context.Context, key string, defaultValue bool) bool
	GetDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration
	Load(ctx context.Context) error
	SubscribeToChanges(ctx context.Context) error
	SetConfigValue(ctx context.Context, key string, value interface{}, isPublic bool) error
	// GetAPIEndpointConfig returns the rate limit override for "METHOD /path", if any.
	GetAPIEndpointConfig(ctx context.Context, endpoint string, authenticated bool) *models.RateLimitConfig
}

const (
	configCollection    = "configuration"
	apiConfigCollection = "api_endpoints_config"
	configUpdateChannel = "config_updates"
)

type configService struct {
	db       *mongo.Database
	cfg      *config.Config
	rdb      *redis.Client
	cache    map[string]models.ConfigEntry
	apiCache map[string]*models.APIEndpointConfig
	mutex    sync.RWMutex
}

// NewConfigService loads the settings and, with Redis available, keeps them
// fresh via pub/sub until ctx is cancelled.
func NewConfigService(ctx context.Context, db *mongo.Database, initialCfg *config.Config, rdb *redis.Client) IConfigService {
	s := &configService{
		db:       db,
		cfg:      initialCfg,
		rdb:      rdb,
		cache:    make(map[string]models.ConfigEntry),
		apiCache: make(map[string]*models.APIEndpointConfig),
	}
	if err := s.Load(ctx); err != nil {
		zap.S().Warnf("Failed to load initial config from DB: %v. Using defaults from .env", err)
	}
	if rdb != nil {
		go func() {
			if err := s.SubscribeToChanges(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zap.S().Errorf("Config Pub/Sub listener stopped: %v", err)
			}
		}()
	}
	return s
}

// Load replaces the in-memory cache with the current DB contents.
func (s *configService) Load(ctx context.Context) error {
	entries, err := findAll[models.ConfigEntry](ctx, s.db.Collection(configCollection), bson.M{})
	if err != nil {
		return err
	}
	newCache := make(map[string]models.ConfigEntry, len(entries))
	for _, e := range entries {
		newCache[e.Key] = e
	}

	endpoints, err := findAll[models.APIEndpointConfig](ctx, s.db.Collection(apiConfigCollection), bson.M{})
	if err != nil {
		return err
	}
	newAPICache := make(map[string]*models.APIEndpointConfig, len(endpoints))
	for i := range endpoints {
		newAPICache[endpoints[i].Endpoint] = &endpoints[i]
	}

	s.mutex.Lock()
	s.cache = newCache
	s.apiCache = newAPICache
	s.mutex.Unlock()

	zap.S().Infof("Loaded %d config entries and %d API endpoint configs", len(newCache), len(newAPICache))
	return nil
}

// GetAllPublic returns every public setting plus APP_NAME.
func (s *configService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	public := map[string]interface{}{}
	s.mutex.RLock()
	for key, e := range s.cache {
		if e.IsPublic {
			public[key] = e.Value
		}
	}
	s.mutex.RUnlock()

	if _, exists := public["APP_NAME"]; !exists {
		public["APP_NAME"] = s.cfg.AppName
	}
	return public, nil
}

func (s *configService) Get(ctx context.Context, key string) (interface{}, error) {
	s.mutex.RLock()
	e, exists := s.cache[key]
	s.mutex.RUnlock()
	if exists {
		return e.Value, nil
	}

	switch key {
	case "APP_NAME":
		return s.cfg.AppName, nil
	case "INVOICE_CODE_PREFIX":
		return s.cfg.InvoiceCodePrefix, nil
	case "DEFAULT_PAYMENT_DAY":
		return s.cfg.DefaultPaymentDay, nil
	default:
		return nil, fmt.Errorf("config key '%s' not found", key)
	}
}

func (s *configService) GetString(ctx context.Context, key string, defaultValue string) string {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if strVal, ok := val.(string); ok {
		return strVal
	}
	zap.S().Warnf("Config key '%s' is not a string, using default.", key)
	return defaultValue
}

func (s *configService) GetInt(ctx context.Context, key string, defaultValue int) int {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	// MongoDB might store numbers as float64 or int32/64
	switch v := val.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		zap.S().Warnf("Config key '%s' is not an integer type (%T), using default.", key, val)
		return defaultValue
	}
}

func (s *configService) GetBool(ctx context.Context, key string, defaultValue bool) bool {
	val, err := s.Get(ctx, key)
	if err != nil {
		return defaultValue
	}
	if boolVal, ok := val.(bool); ok {
		return boolVal
	}
	zap.S().Warnf("Config key '%s' is not a boolean, using default.", key)
	return defaultValue
}

// GetDuration reads a value stored as whole seconds.
func (s *configService) GetDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	seconds := s.GetInt(ctx, key, -1)
	if seconds < 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}

// SubscribeToChanges reloads the cache on every message published to the
// update channel. It returns when ctx is done.
func (s *configService) SubscribeToChanges(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	pubsub := s.rdb.Subscribe(ctx, configUpdateChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to confirm Redis Pub/Sub subscription: %w", err)
	}
	ch := pubsub.Channel()
	zap.S().Infof("Subscribed to Redis channel %s for config updates", configUpdateChannel)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			zap.S().Infof("Config update notification for key %s", msg.Payload)
			if err := s.Load(ctx); err != nil {
				zap.S().Errorf("Reloading config after notification failed: %v", err)
			}
		}
	}
}

// SetConfigValue upserts a setting and tells every process to reload.
func (s *configService) SetConfigValue(ctx context.Context, key string, value interface{}, isPublic bool) error {
	if key == "" {
		return NewValidationError("key is required")
	}
	filter := bson.M{"_id": key}
	update := bson.M{"$set": bson.M{"value": value, "is_public": isPublic}}
	if _, err := s.db.Collection(configCollection).UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert config key '%s': %w", key, err)
	}

	s.mutex.Lock()
	s.cache[key] = models.ConfigEntry{Key: key, Value: value, IsPublic: isPublic}
	s.mutex.Unlock()

	if s.rdb != nil {
		if err := s.rdb.Publish(ctx, configUpdateChannel, key).Err(); err != nil {
			zap.S().Warnf("Failed to publish config update for key '%s': %v", key, err)
		}
	}
	zap.S().Infof("Updated config key '%s'", key)
	return nil
}

// GetAPIEndpointConfig prefers the override matching the caller's auth state
// and falls back to the anonymous one for authenticated callers.
func (s *configService) GetAPIEndpointConfig(ctx context.Context, endpoint string, authenticated bool) *models.RateLimitConfig {
	s.mutex.RLock()
	entry, exists := s.apiCache[endpoint]
	s.mutex.RUnlock()
	if !exists {
		return nil
	}
	if authenticated && entry.RateLimitAuth != nil {
		return entry.RateLimitAuth
	}
	return entry.RateLimitAnon
}
