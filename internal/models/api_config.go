package models

// RateLimitConfig holds token bucket parameters.
type RateLimitConfig struct {
	BucketSize      int `bson:"bucket_size" json:"bucket_size"`
	TokenRefillRate int `bson:"token_refill_rate" json:"token_refill_rate"` // Tokens per second
}

// APIEndpointConfig overrides rate limits for one route, keyed by "METHOD /path".
// Stored in the `api_endpoints_config` collection.
type APIEndpointConfig struct {
	Base          `bson:",inline"`
	Endpoint      string           `bson:"endpoint" json:"endpoint"` // e.g. "POST /api/auto-invoice"
	RateLimitAnon *RateLimitConfig `bson:"rate_limit_anon,omitempty" json:"rate_limit_anon,omitempty"`
	RateLimitAuth *RateLimitConfig `bson:"rate_limit_auth,omitempty" json:"rate_limit_auth,omitempty"`
}

// ConfigEntry is one runtime setting in the `configuration` collection.
type ConfigEntry struct {
	Key      string      `bson:"_id" json:"key"`
	Value    interface{} `bson:"value" json:"value"`
	IsPublic bool        `bson:"is_public" json:"is_public"`
}
