// internal/stages/contentgen/config.go
package contentgen

import "time"

// PlaceholderImage is substituted for any image whose generation fails.
// Image failures never fail the stage.
const PlaceholderImage = "https://via.placeholder.com/500x300"

type Config struct {
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Timeout: 120 * time.Second,
	}
}
