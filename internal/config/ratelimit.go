package config

import "time"

// RateLimitConfig configures the Redis token bucket.  The general
// bucket applies to every /api request; the auth bucket is a stricter
// one for login, registration and refresh.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	AuthCapacity   int
	AuthRefill     time.Duration
	TTL            time.Duration
	KeyStrategy    string // "ip", "user", "ip_route", "ip_user_route"
	Prefix         string
	Debug          bool
}

func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		AuthCapacity:   envInt("RATE_LIMIT_AUTH_CAPACITY", 10),
		AuthRefill:     envDur("RATE_LIMIT_AUTH_REFILL_INTERVAL", 6*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "atypik:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.AuthCapacity < 1 {
		c.AuthCapacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if c.AuthRefill <= 0 {
		c.AuthRefill = c.RefillInterval
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

// Auth returns a copy configured with the auth bucket parameters and
// its own key prefix.
func (c RateLimitConfig) Auth() RateLimitConfig {
	a := c
	a.Capacity = c.AuthCapacity
	a.RefillTokens = 1
	a.RefillInterval = c.AuthRefill
	a.KeyStrategy = "ip_route"
	a.Prefix = c.Prefix + ":auth"
	if minTTL := 5 * a.RefillInterval; a.TTL < minTTL {
		a.TTL = minTTL
	}
	return a
}
