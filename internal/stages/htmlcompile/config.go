// internal/stages/htmlcompile/config.go
package htmlcompile

import "time"

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
