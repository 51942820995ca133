package loadgen

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds synthetic order generation configuration
type Config struct {
	// Orders to send; each produces one buy and one sell
	Count int

	// Seed makes a run reproducible
	Seed int64

	// Symbols drawn from at random
	Symbols []string

	// Quantities drawn from at random
	Quantities []int64

	// Price band orders are drawn from
	PriceMin float64
	PriceMax float64

	// Profile compactly overrides pacing, e.g. "delay=5-20"
	Profile    string
	DelayMsMin int
	DelayMsMax int
}

// LoadConfig loads generator configuration from environment variables
func LoadConfig() *Config {
	cfg := &Config{
		Count:      getEnvAsInt("LOADGEN_COUNT", 100),
		Seed:       getEnvAsInt64("LOADGEN_SEED", 1),
		Symbols:    splitList(getEnvAsString("LOADGEN_SYMBOLS", "PETR4,VALE3,PRIO3,OIBR3")),
		Quantities: []int64{100, 500, 1000},
		PriceMin:   10.00,
		PriceMax:   15.00,
		Profile:    getEnvAsString("LOADGEN_PROFILE", ""),
		DelayMsMin: getEnvAsInt("LOADGEN_DELAY_MS_MIN", 0),
		DelayMsMax: getEnvAsInt("LOADGEN_DELAY_MS_MAX", 0),
	}
	return cfg
}

// ParseProfile parses a profile string like "delay=50-250"
func ParseProfile(profile string) (delayMin int, delayMax int, err error) {
	if profile == "" {
		return 0, 0, nil
	}

	parts := strings.Split(profile, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "delay=") {
			val := strings.TrimPrefix(part, "delay=")
			delayParts := strings.Split(val, "-")
			if len(delayParts) == 2 {
				delayMin, err = strconv.Atoi(delayParts[0])
				if err != nil {
					return 0, 0, fmt.Errorf("invalid delay min: %w", err)
				}
				delayMax, err = strconv.Atoi(delayParts[1])
				if err != nil {
					return 0, 0, fmt.Errorf("invalid delay max: %w", err)
				}
			}
		}
	}

	return delayMin, delayMax, nil
}

func splitList(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func getEnvAsString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
