package session

import "time"

// Config bounds the blocking operations of one channel. Zero read and write
// timeouts block until the peer answers or closes.
type Config struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    0,
		WriteTimeout:   15 * time.Second,
	}
}

// WithDefaults fills unset connect timeouts and clamps negative values.
func (c Config) WithDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	if c.ReadTimeout < 0 {
		c.ReadTimeout = 0
	}
	if c.WriteTimeout < 0 {
		c.WriteTimeout = 0
	}
	return c
}
