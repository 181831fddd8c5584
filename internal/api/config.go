package api

// Config holds server configuration.
type Config struct {
	Port              int
	AllowedOrigins    []string   // CORS and websocket origins (empty = allow all)
	RateLimitRequests int        // Requests per minute (0 = disabled)
	RateLimitBurst    int        // Burst size
	Auth              AuthConfig // Authentication configuration

	// MaxMessageSize caps one websocket frame in bytes.
	MaxMessageSize int64
	// MaxMessageRate caps websocket messages per second per client.
	MaxMessageRate int
}

const (
	defaultMaxMessageSize = 4096
	defaultMaxMessageRate = 5
	defaultBurstSize      = 10

	// maxUtteranceRunes bounds a chat message before it reaches the router.
	maxUtteranceRunes = 500
)

func (c Config) withDefaults() Config {
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaultMaxMessageSize
	}
	if c.MaxMessageRate <= 0 {
		c.MaxMessageRate = defaultMaxMessageRate
	}
	if c.RateLimitRequests > 0 && c.RateLimitBurst <= 0 {
		c.RateLimitBurst = defaultBurstSize
	}
	return c
}
