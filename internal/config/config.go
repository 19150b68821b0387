// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Port        string
	Environment string
	RedisURL    string
	JWTSecret   string

	// Discord connection
	DiscordToken  string
	CommandPrefix string

	// Onboarding behaviour
	HelperRoleName  string
	WelcomeCategory string
	RequireCategory bool
	ChannelPrefix   string
	HardenedPrivacy bool
	TimeZone        string

	// Onboarding timings
	FollowUpDelay       time.Duration
	InitialPromptTTL    time.Duration
	FollowUpPromptTTL   time.Duration
	SuppressionWindow   time.Duration
	DuplicateSweepDelay time.Duration
	DeleteGraceDelay    time.Duration
	SweepSchedule       string

	// Event fan-out
	RedisEventsChannel string

	// Admin API rate limiting
	AdminRateRPS   int
	AdminRateBurst int
}

func Load() *Config {
	return &Config{
		Port:        getEnv("API_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		RedisURL:    getEnv("REDIS_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", "change-me"),

		DiscordToken:  getEnv("DISCORD_TOKEN", ""),
		CommandPrefix: getEnv("COMMAND_PREFIX", "!"),

		HelperRoleName:  getEnv("HELPER_ROLE_NAME", "helpers"),
		WelcomeCategory: getEnv("WELCOME_CATEGORY", "welcome"),
		RequireCategory: getEnvBool("REQUIRE_CATEGORY", false),
		ChannelPrefix:   getEnv("CHANNEL_PREFIX", "welcome"),
		HardenedPrivacy: getEnvBool("HARDENED_PRIVACY", false),
		TimeZone:        getEnv("TIMEZONE", "Local"),

		FollowUpDelay:       getEnvDuration("FOLLOW_UP_DELAY", 48*time.Hour),
		InitialPromptTTL:    getEnvDuration("INITIAL_PROMPT_TTL", 5*time.Minute),
		FollowUpPromptTTL:   getEnvDuration("FOLLOW_UP_PROMPT_TTL", 6*24*time.Hour),
		SuppressionWindow:   getEnvDuration("SUPPRESSION_WINDOW", 5*time.Minute),
		DuplicateSweepDelay: getEnvDuration("DUPLICATE_SWEEP_DELAY", 2*time.Second),
		DeleteGraceDelay:    getEnvDuration("DELETE_GRACE_DELAY", 5*time.Second),
		SweepSchedule:       getEnv("SWEEP_SCHEDULE", "@every 1h"),

		RedisEventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "onboarding:events"),

		AdminRateRPS:   getEnvInt("ADMIN_RATE_RPS", 5),
		AdminRateBurst: getEnvInt("ADMIN_RATE_BURST", 10),
	}
}

// Validate checks the values that would otherwise fail deep inside the bot.
func (c *Config) Validate() error {
	if c.HelperRoleName == "" {
		return fmt.Errorf("HELPER_ROLE_NAME must not be empty")
	}
	if c.ChannelPrefix == "" {
		return fmt.Errorf("CHANNEL_PREFIX must not be empty")
	}
	durations := map[string]time.Duration{
		"FOLLOW_UP_DELAY":      c.FollowUpDelay,
		"INITIAL_PROMPT_TTL":   c.InitialPromptTTL,
		"FOLLOW_UP_PROMPT_TTL": c.FollowUpPromptTTL,
		"SUPPRESSION_WINDOW":   c.SuppressionWindow,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if c.DuplicateSweepDelay < 0 || c.DeleteGraceDelay < 0 {
		return fmt.Errorf("DUPLICATE_SWEEP_DELAY and DELETE_GRACE_DELAY must not be negative")
	}
	if _, err := cron.ParseStandard(c.SweepSchedule); err != nil {
		return fmt.Errorf("invalid SWEEP_SCHEDULE %q: %w", c.SweepSchedule, err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
