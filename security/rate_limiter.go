package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	TierDefault  = "default"
	TierStandard = "standard"
	TierPremium  = "premium"
)

type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	cleanup  *time.Timer
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func CreateRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
	rl.startCleanup()
	return rl
}

func (rl *RateLimiter) Allow(key string, config RateLimitConfig) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
		rl.limiters[key] = limiter
	}

	return limiter.Allow()
}

// Remaining reports how many requests key may still burst right now.
func (rl *RateLimiter) Remaining(key string) (int, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		return 0, false
	}

	tokens := int(limiter.Tokens())
	if tokens < 0 {
		tokens = 0
	}
	return tokens, true
}

func (rl *RateLimiter) startCleanup() {
	rl.cleanup = time.AfterFunc(5*time.Minute, func() {
		rl.mu.Lock()
		now := time.Now()
		for key, limiter := range rl.limiters {
			if limiter.TokensAt(now) >= float64(limiter.Burst()) {
				delete(rl.limiters, key)
			}
		}
		rl.mu.Unlock()

		rl.startCleanup()
	})
}

func (rl *RateLimiter) Close() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.cleanup != nil {
		rl.cleanup.Stop()
	}
}

type TieredRateLimiter struct {
	tiers map[string]RateLimitConfig
	rl    *RateLimiter
}

func CreateTieredRateLimiter(tiers map[string]RateLimitConfig) *TieredRateLimiter {
	return &TieredRateLimiter{
		tiers: tiers,
		rl:    CreateRateLimiter(),
	}
}

func (trl *TieredRateLimiter) Allow(key, tier string) bool {
	return trl.rl.Allow(key, trl.configFor(tier))
}

func (trl *TieredRateLimiter) Remaining(key string) (int, bool) {
	return trl.rl.Remaining(key)
}

func (trl *TieredRateLimiter) configFor(tier string) RateLimitConfig {
	if config, exists := trl.tiers[tier]; exists {
		return config
	}
	return trl.tiers[TierDefault]
}

func (trl *TieredRateLimiter) Close() {
	trl.rl.Close()
}

// TierForRoles picks the most generous tier any of the roles grants.
func TierForRoles(roles []string) string {
	tier := TierDefault
	for _, role := range roles {
		switch role {
		case "owner", "admin", "premium":
			return TierPremium
		case "staff", "standard":
			tier = TierStandard
		}
	}
	return tier
}
