package taxiin

import (
	"fmt"
	"time"
)

// DefaultMaxGapSeconds is the surveillance gap after which an open taxi-in
// episode is closed at its last accepted movement.
const DefaultMaxGapSeconds = 600

// MinTaxiSpeed is the ground speed an on-ground record must exceed to count
// as taxi movement.
const MinTaxiSpeed = 5.0

// Config holds the segmentation parameters.
type Config struct {
	MaxGapSeconds int // gap (s) after the last accepted movement that closes an episode
}

// DefaultConfig returns the segmentation defaults.
func DefaultConfig() Config {
	return Config{MaxGapSeconds: DefaultMaxGapSeconds}
}

// Validate checks that the configuration values are usable.
func (c Config) Validate() error {
	if c.MaxGapSeconds <= 0 {
		return fmt.Errorf("max_gap_seconds must be positive, got %d", c.MaxGapSeconds)
	}
	return nil
}

// MaxGap returns MaxGapSeconds as a duration.
func (c Config) MaxGap() time.Duration {
	return time.Duration(c.MaxGapSeconds) * time.Second
}
