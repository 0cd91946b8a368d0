package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"SERVER"`
	Database      DatabaseConfig      `mapstructure:"DATABASE"`
	Redis         RedisConfig         `mapstructure:"REDIS"`
	AWS           AWSConfig           `mapstructure:"AWS"`
	Scheduler     SchedulerConfig     `mapstructure:"SCHEDULER"`
	Reputation    ReputationConfig    `mapstructure:"REPUTATION"`
	Collaborators CollaboratorsConfig `mapstructure:"COLLABORATORS"`
}

type ServerConfig struct {
	Host     string `mapstructure:"HOST"`
	Port     string `mapstructure:"PORT"`
	Endpoint string `mapstructure:"ENDPOINT"`
}

type DatabaseConfig struct {
	Username     string `mapstructure:"USERNAME"`
	Password     string `mapstructure:"PASSWORD"`
	Host         string `mapstructure:"HOST"`
	Port         string `mapstructure:"PORT"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

type AWSConfig struct {
	Region          string `mapstructure:"REGION"`
	BucketName      string `mapstructure:"BUCKET_NAME"`
	AccessKeyID     string `mapstructure:"ACCESS_KEY_ID"`
	SecretAccessKey string `mapstructure:"SECRET_ACCESS_KEY"`
}

type SchedulerConfig struct {
	LeaderboardIntervalMinutes int    `mapstructure:"LEADERBOARD_INTERVAL_MINUTES"`
	AnalyticsRolloverAt        string `mapstructure:"ANALYTICS_ROLLOVER_AT"`
}

// ReputationConfig tunes the event processing pipeline. Zero values fall
// back to the documented defaults via the accessor methods.
type ReputationConfig struct {
	LeaderboardTopN       int     `mapstructure:"LEADERBOARD_TOP_N"`
	AnalyticsSamplingRate float64 `mapstructure:"ANALYTICS_SAMPLING_RATE"`
	DailyMaxAgeMinutes    int     `mapstructure:"DAILY_MAX_AGE_MINUTES"`
	WeeklyMaxAgeMinutes   int     `mapstructure:"WEEKLY_MAX_AGE_MINUTES"`
	MonthlyMaxAgeMinutes  int     `mapstructure:"MONTHLY_MAX_AGE_MINUTES"`
	AllTimeMaxAgeMinutes  int     `mapstructure:"ALL_TIME_MAX_AGE_MINUTES"`
	BreakerMaxFailures    int     `mapstructure:"BREAKER_MAX_FAILURES"`
	BreakerResetSeconds   int     `mapstructure:"BREAKER_RESET_SECONDS"`
	JobTimeoutSeconds     int     `mapstructure:"JOB_TIMEOUT_SECONDS"`
	MaxRetries            int     `mapstructure:"MAX_RETRIES"`
}

type CollaboratorsConfig struct {
	NotificationURL string `mapstructure:"NOTIFICATION_URL"`
	ModerationURL   string `mapstructure:"MODERATION_URL"`
	AchievementURL  string `mapstructure:"ACHIEVEMENT_URL"`
	FeatureGateURL  string `mapstructure:"FEATURE_GATE_URL"`
}

func (rc ReputationConfig) TopN() int {
	if rc.LeaderboardTopN <= 0 {
		return 100
	}
	return rc.LeaderboardTopN
}

func (rc ReputationConfig) SamplingRate() float64 {
	if rc.AnalyticsSamplingRate <= 0 || rc.AnalyticsSamplingRate > 1 {
		return 0.10
	}
	return rc.AnalyticsSamplingRate
}

func (rc ReputationConfig) JobTimeout() time.Duration {
	if rc.JobTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(rc.JobTimeoutSeconds) * time.Second
}

func minutesOr(m int, fallback time.Duration) time.Duration {
	if m <= 0 {
		return fallback
	}
	return time.Duration(m) * time.Minute
}

// MaxAges returns the per-type leaderboard recompute ceilings keyed by the
// leaderboard type name.
func (rc ReputationConfig) MaxAges() map[string]time.Duration {
	return map[string]time.Duration{
		"daily":    minutesOr(rc.DailyMaxAgeMinutes, 5*time.Minute),
		"weekly":   minutesOr(rc.WeeklyMaxAgeMinutes, 15*time.Minute),
		"monthly":  minutesOr(rc.MonthlyMaxAgeMinutes, time.Hour),
		"all_time": minutesOr(rc.AllTimeMaxAgeMinutes, 6*time.Hour),
	}
}

type ConfigManager struct {
	config     *Config
	configPath string
	mutex      sync.RWMutex
}

var (
	instance *ConfigManager
	once     sync.Once
)

func (dc *DatabaseConfig) GetConnectionURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		dc.Username,
		dc.Password,
		dc.Host,
		dc.Port,
		dc.DatabaseName,
	)
}

func GetConfigManager() *ConfigManager {
	once.Do(func() {
		instance = &ConfigManager{
			configPath: ".env",
		}
	})
	return instance
}

func (cm *ConfigManager) SetConfigPath(path string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.configPath = path
	cm.config = nil
}

func (cm *ConfigManager) GetConfig() (*Config, error) {
	cm.mutex.RLock()
	if cm.config != nil {
		defer cm.mutex.RUnlock()
		return cm.config, nil
	}
	cm.mutex.RUnlock()

	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.config != nil {
		return cm.config, nil
	}

	var err error
	cm.config, err = loadConfigFile(cm.configPath)
	return cm.config, err
}

func (cm *ConfigManager) ReloadConfig() (*Config, error) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	var err error
	cm.config, err = loadConfigFile(cm.configPath)
	return cm.config, err
}

func (cm *ConfigManager) GetConfigPath() string {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.configPath
}

func loadConfigFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetDefault("SERVER", map[string]interface{}{
		"HOST":     v.GetString("SERVER_HOST"),
		"PORT":     v.GetString("SERVER_PORT"),
		"ENDPOINT": v.GetString("SERVER_ENDPOINT"),
	})

	v.SetDefault("DATABASE", map[string]interface{}{
		"USERNAME":      v.GetString("DATABASE_USERNAME"),
		"PASSWORD":      v.GetString("DATABASE_PASSWORD"),
		"HOST":          v.GetString("DATABASE_HOST"),
		"PORT":          v.GetString("DATABASE_PORT"),
		"DATABASE_NAME": v.GetString("DATABASE_DATABASE_NAME"),
	})

	v.SetDefault("REDIS", map[string]interface{}{
		"ADDR":     v.GetString("REDIS_ADDR"),
		"PASSWORD": v.GetString("REDIS_PASSWORD"),
		"DB":       v.GetInt("REDIS_DB"),
	})

	v.SetDefault("AWS", map[string]interface{}{
		"REGION":            v.GetString("AWS_REGION"),
		"BUCKET_NAME":       v.GetString("AWS_BUCKET_NAME"),
		"ACCESS_KEY_ID":     v.GetString("AWS_ACCESS_KEY_ID"),
		"SECRET_ACCESS_KEY": v.GetString("AWS_SECRET_ACCESS_KEY"),
	})

	v.SetDefault("SCHEDULER", map[string]interface{}{
		"LEADERBOARD_INTERVAL_MINUTES": v.GetInt("SCHEDULER_LEADERBOARD_INTERVAL_MINUTES"),
		"ANALYTICS_ROLLOVER_AT":        v.GetString("SCHEDULER_ANALYTICS_ROLLOVER_AT"),
	})

	v.SetDefault("REPUTATION", map[string]interface{}{
		"LEADERBOARD_TOP_N":       v.GetInt("REPUTATION_LEADERBOARD_TOP_N"),
		"ANALYTICS_SAMPLING_RATE": v.GetFloat64("REPUTATION_ANALYTICS_SAMPLING_RATE"),
		"DAILY_MAX_AGE_MINUTES":   v.GetInt("REPUTATION_DAILY_MAX_AGE_MINUTES"),
		"WEEKLY_MAX_AGE_MINUTES":  v.GetInt("REPUTATION_WEEKLY_MAX_AGE_MINUTES"),
		"MONTHLY_MAX_AGE_MINUTES": v.GetInt("REPUTATION_MONTHLY_MAX_AGE_MINUTES"),
		"ALL_TIME_MAX_AGE_MINUTES": v.GetInt(
			"REPUTATION_ALL_TIME_MAX_AGE_MINUTES"),
		"BREAKER_MAX_FAILURES":  v.GetInt("REPUTATION_BREAKER_MAX_FAILURES"),
		"BREAKER_RESET_SECONDS": v.GetInt("REPUTATION_BREAKER_RESET_SECONDS"),
		"JOB_TIMEOUT_SECONDS":   v.GetInt("REPUTATION_JOB_TIMEOUT_SECONDS"),
		"MAX_RETRIES":           v.GetInt("REPUTATION_MAX_RETRIES"),
	})

	v.SetDefault("COLLABORATORS", map[string]interface{}{
		"NOTIFICATION_URL": v.GetString("COLLABORATORS_NOTIFICATION_URL"),
		"MODERATION_URL":   v.GetString("COLLABORATORS_MODERATION_URL"),
		"ACHIEVEMENT_URL":  v.GetString("COLLABORATORS_ACHIEVEMENT_URL"),
		"FEATURE_GATE_URL": v.GetString("COLLABORATORS_FEATURE_GATE_URL"),
	})

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if config.Database.Username == "" || config.Database.Password == "" ||
		config.Database.Host == "" || config.Database.Port == "" ||
		config.Database.DatabaseName == "" {
		return nil, fmt.Errorf("missing required database configuration")
	}

	return &config, nil
}
