/**
 * @description
 * Configuration management for the penalty service.
 * Settings come from environment variables (optionally a .env file loaded in main).
 */
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/deedtrack/penalty-service/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisLockPrefix      string `mapstructure:"REDIS_LOCK_PREFIX"`
	RunLockTTLSeconds    int    `mapstructure:"RUN_LOCK_TTL_SECONDS"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	NotificationExchange string `mapstructure:"NOTIFICATION_EXCHANGE"`
	InternalAPIKey       string `mapstructure:"INTERNAL_API_KEY"`
	ServiceRoleJWTSecret string `mapstructure:"SERVICE_ROLE_JWT_SECRET"`
	BusinessTimezone     string `mapstructure:"BUSINESS_TIMEZONE"`
	TimezoneLabel        string `mapstructure:"TIMEZONE_LABEL"`
	PenaltyJobSchedule   string `mapstructure:"PENALTY_JOB_SCHEDULE"`
	WarningThreshold1    int64  `mapstructure:"WARNING_THRESHOLD_1"`
	WarningThreshold2    int64  `mapstructure:"WARNING_THRESHOLD_2"`
	DeactivationLimit    int64  `mapstructure:"DEACTIVATION_THRESHOLD"`
	EscalationTiers      string `mapstructure:"ESCALATION_MEMBERSHIP_TIERS"`
	MaxConcurrency       int    `mapstructure:"MAX_CONCURRENCY"`
	RunTimeoutSeconds    int    `mapstructure:"RUN_TIMEOUT_SECONDS"`
}

var keys = []string{
	"SERVER_PORT",
	"PORT",
	"DATABASE_URL",
	"REDIS_URL",
	"REDIS_LOCK_PREFIX",
	"RUN_LOCK_TTL_SECONDS",
	"RABBITMQ_URL",
	"NOTIFICATION_EXCHANGE",
	"INTERNAL_API_KEY",
	"SERVICE_ROLE_JWT_SECRET",
	"BUSINESS_TIMEZONE",
	"TIMEZONE_LABEL",
	"PENALTY_JOB_SCHEDULE",
	"WARNING_THRESHOLD_1",
	"WARNING_THRESHOLD_2",
	"DEACTIVATION_THRESHOLD",
	"ESCALATION_MEMBERSHIP_TIERS",
	"MAX_CONCURRENCY",
	"RUN_TIMEOUT_SECONDS",
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	defaults := domain.DefaultThresholds()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_LOCK_PREFIX", "penalty:lock")
	viper.SetDefault("RUN_LOCK_TTL_SECONDS", 1800)
	viper.SetDefault("NOTIFICATION_EXCHANGE", "deedtrack.events")
	viper.SetDefault("BUSINESS_TIMEZONE", "Africa/Nairobi")
	viper.SetDefault("TIMEZONE_LABEL", "EAT (UTC+3)")
	viper.SetDefault("PENALTY_JOB_SCHEDULE", "0 12 * * *") // 12:00 business time, daily.
	viper.SetDefault("WARNING_THRESHOLD_1", defaults.Warn1)
	viper.SetDefault("WARNING_THRESHOLD_2", defaults.Warn2)
	viper.SetDefault("DEACTIVATION_THRESHOLD", defaults.Deactivate)
	viper.SetDefault("ESCALATION_MEMBERSHIP_TIERS", "exclusive,legacy")
	viper.SetDefault("MAX_CONCURRENCY", 8)
	viper.SetDefault("RUN_TIMEOUT_SECONDS", 900)
	viper.AutomaticEnv()

	for _, key := range keys {
		_ = viper.BindEnv(key)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if port := os.Getenv("PORT"); port != "" {
		config.ServerPort = port
	}
	// Empty env values fall back to the default, so "off" is the way to disable the cron job.
	if s := strings.TrimSpace(config.PenaltyJobSchedule); strings.EqualFold(s, "off") {
		config.PenaltyJobSchedule = ""
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate reports configuration the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("invalid escalation thresholds: %w", err)
	}
	if len(c.MembershipTiers()) == 0 {
		return errors.New("ESCALATION_MEMBERSHIP_TIERS must name at least one tier")
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Thresholds returns the configured escalation bands.
func (c *Config) Thresholds() domain.Thresholds {
	return domain.Thresholds{
		Warn1:      c.WarningThreshold1,
		Warn2:      c.WarningThreshold2,
		Deactivate: c.DeactivationLimit,
	}
}

// MembershipTiers parses the comma separated tier list.
func (c *Config) MembershipTiers() []domain.MembershipStatus {
	var tiers []domain.MembershipStatus
	for _, part := range strings.Split(c.EscalationTiers, ",") {
		tier := strings.ToLower(strings.TrimSpace(part))
		if tier == "" {
			continue
		}
		tiers = append(tiers, domain.MembershipStatus(tier))
	}
	return tiers
}

// Location loads the business timezone used for cron schedules.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", c.BusinessTimezone, err)
	}
	return loc, nil
}

// RunTimeout bounds a scheduled run. Zero means no limit.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

// RunLockTTL is how long a run lock survives a crashed holder.
func (c *Config) RunLockTTL() time.Duration {
	return time.Duration(c.RunLockTTLSeconds) * time.Second
}
