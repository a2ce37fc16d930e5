package security

import (
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := CreateRateLimiter()
	config := RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             10,
	}

	t.Run("Allow within limit", func(t *testing.T) {
		key := "test-key-1"
		for i := 0; i < 10; i++ {
			if !limiter.Allow(key, config) {
				t.Errorf("Request %d should be allowed", i+1)
			}
		}
	})

	t.Run("Block after limit", func(t *testing.T) {
		key := "test-key-2"
		limitedConfig := RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             5,
		}

		for i := 0; i < 5; i++ {
			limiter.Allow(key, limitedConfig)
		}

		if limiter.Allow(key, limitedConfig) {
			t.Error("Request should be blocked after limit")
		}
	})
}

func TestRateLimiter_Refill(t *testing.T) {
	limiter := CreateRateLimiter()
	key := "test-key-refill"
	config := RateLimitConfig{
		RequestsPerSecond: 10,
		Burst:             2,
	}

	limiter.Allow(key, config)
	limiter.Allow(key, config)

	if limiter.Allow(key, config) {
		t.Error("Request should be blocked")
	}

	time.Sleep(150 * time.Millisecond)

	if !limiter.Allow(key, config) {
		t.Error("Request should be allowed after refill")
	}
}

func TestTieredRateLimiter_TierLimits(t *testing.T) {
	tiers := map[string]RateLimitConfig{
		"free": {
			RequestsPerSecond: 10,
			Burst:             20,
		},
		"basic": {
			RequestsPerSecond: 100,
			Burst:             200,
		},
		"premium": {
			RequestsPerSecond: 1000,
			Burst:             2000,
		},
		"default": {
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}
	limiter := CreateTieredRateLimiter(tiers)

	tests := []struct {
		name string
		tier string
	}{
		{
			name: "Free tier",
			tier: "free",
		},
		{
			name: "Basic tier",
			tier: "basic",
		},
		{
			name: "Premium tier",
			tier: "premium",
		},
		{
			name: "Unknown tier defaults to free",
			tier: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "test-key-" + tt.name
			if !limiter.Allow(key, tt.tier) {
				t.Error("First request should be allowed")
			}
		})
	}
}

func TestTieredRateLimiter_FreeTierLimit(t *testing.T) {
	tiers := map[string]RateLimitConfig{
		"free": {
			RequestsPerSecond: 10,
			Burst:             20,
		},
		"default": {
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}
	limiter := CreateTieredRateLimiter(tiers)
	key := "test-key-free-limit"

	for i := 0; i < 20; i++ {
		if !limiter.Allow(key, "free") {
			t.Errorf("Request %d should be allowed in burst", i+1)
		}
	}

	if limiter.Allow(key, "free") {
		t.Error("Request should be blocked after burst limit")
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	limiter := CreateRateLimiter()
	defer limiter.Close()
	key := "test-key-stats"
	config := RateLimitConfig{
		RequestsPerSecond: 1,
		Burst:             10,
	}

	if _, exists := limiter.Remaining(key); exists {
		t.Error("Remaining() should return exists=false for unseen key")
	}

	limiter.Allow(key, config)
	limiter.Allow(key, config)
	limiter.Allow(key, config)

	remaining, exists := limiter.Remaining(key)
	if !exists {
		t.Error("Remaining() should return exists=true")
	}
	if remaining < 6 || remaining > 7 {
		t.Errorf("Remaining() = %d, want about 7", remaining)
	}
}

func TestTierForRoles(t *testing.T) {
	tests := []struct {
		roles []string
		want  string
	}{
		{nil, TierDefault},
		{[]string{"viewer"}, TierDefault},
		{[]string{"staff"}, TierStandard},
		{[]string{"staff", "owner"}, TierPremium},
	}

	for _, tt := range tests {
		if got := TierForRoles(tt.roles); got != tt.want {
			t.Errorf("TierForRoles(%v) = %s, want %s", tt.roles, got, tt.want)
		}
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	limiter := CreateRateLimiter()
	config := RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             100,
	}

	done := make(chan bool, 50)

	for i := 0; i < 50; i++ {
		go func(id int) {
			key := "concurrent-key"
			limiter.Allow(key, config)
			done <- true
		}(i)
	}

	for i := 0; i < 50; i++ {
		<-done
	}

	if _, exists := limiter.Remaining("concurrent-key"); !exists {
		t.Error("Remaining() should return exists=true after concurrent access")
	}
}
