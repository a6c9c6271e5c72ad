package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trohub/app/internal/config"
	"trohub/app/internal/services"
)

// clientLimiter is one token bucket, the limits it was built with and when it was last used.
type clientLimiter struct {
	limiter  *rate.Limiter
	refill   int
	burst    int
	lastSeen time.Time
}

// RateLimiterMiddleware keeps a token bucket per client and endpoint.
type RateLimiterMiddleware struct {
	clients       map[string]*clientLimiter
	mu            sync.Mutex
	cfg           *config.Config
	configService services.IConfigService // Per-endpoint overrides
}

// NewRateLimiterMiddleware starts a cleanup loop that stops with ctx.
func NewRateLimiterMiddleware(ctx context.Context, cfg *config.Config, configService services.IConfigService) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients:       make(map[string]*clientLimiter),
		cfg:           cfg,
		configService: configService,
	}
	go rm.cleanupClients(ctx, 10*time.Minute, 30*time.Minute)
	return rm
}

// clientIdentifier is the user for authenticated requests and the IP otherwise.
func clientIdentifier(c *gin.Context) string {
	if IsAuthenticated(c) {
		return "user:" + ActorFrom(c).UserID.String()
	}
	return "ip:" + c.ClientIP()
}

func (rm *RateLimiterMiddleware) getClientLimiter(key string, refill, burst int) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[key]
	// A changed override replaces the bucket.
	if !exists || limiter.refill != refill || limiter.burst != burst {
		limiter = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(refill), burst), refill: refill, burst: burst}
		rm.clients[key] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

func (rm *RateLimiterMiddleware) cleanupClients(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rm.removeIdle(maxIdle)
		}
	}
}

func (rm *RateLimiterMiddleware) removeIdle(maxIdle time.Duration) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	count := 0
	for id, client := range rm.clients {
		if time.Since(client.lastSeen) > maxIdle {
			delete(rm.clients, id)
			count++
		}
	}
	if count > 0 {
		zap.S().Infof("Rate limiter cleanup removed %d idle client entries", count)
	}
	return count
}

// Limit creates the Gin middleware handler. Limits come from the endpoint's
// override in ConfigService, keyed "METHOD /path", or the configured defaults.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.Request.Method + " " + c.FullPath()
		refill := rm.cfg.RateLimitRefillRate
		burst := rm.cfg.RateLimitBucketSize
		if rm.configService != nil {
			if override := rm.configService.GetAPIEndpointConfig(c.Request.Context(), endpoint, IsAuthenticated(c)); override != nil {
				refill = override.TokenRefillRate
				burst = override.BucketSize
			}
		}

		client := clientIdentifier(c)
		limiter := rm.getClientLimiter(client+"|"+endpoint, refill, burst)
		if !limiter.limiter.Allow() {
			zap.S().Warnf("Rate limit exceeded for %s on %s", client, endpoint)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many requests, please slow down"})
			return
		}
		c.Next()
	}
}
