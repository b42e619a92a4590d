package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Controller   ControllerConfig   `mapstructure:"controller"`
	Trajectories TrajectoriesConfig `mapstructure:"trajectories"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type AuthConfig struct {
	JWTSecretEnv    string        `mapstructure:"jwt_secret_env"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// ControllerConfig describes the motion controller this instance drives.
type ControllerConfig struct {
	DialTimeout time.Duration       `mapstructure:"dial_timeout"`
	Groups      []MotionGroupConfig `mapstructure:"motion_groups"`
}

// MotionGroupConfig names one controllable robot/axis group and the feedback
// port its event stream is read from.
type MotionGroupConfig struct {
	Name            string `mapstructure:"name"`
	FeedbackAddress string `mapstructure:"feedback_address"`
}

type TrajectoriesConfig struct {
	SearchPaths []string `mapstructure:"search_paths"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("database.max_connections", 10)
	viper.SetDefault("controller.dial_timeout", "5s")

	// Auth defaults
	viper.SetDefault("auth.jwt_secret_env", "JWT_SECRET")
	viper.SetDefault("auth.access_token_ttl", "60m")
	viper.SetDefault("auth.refresh_token_ttl", "168h")

	// Environment variables with prefix MC_
	viper.AutomaticEnv()
	viper.SetEnvPrefix("MC")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// GetJWTSecret loads the signing secret from the configured environment
// variable, with a development fallback.
func (a *AuthConfig) GetJWTSecret() string {
	envVar := a.JWTSecretEnv
	if envVar == "" {
		envVar = "JWT_SECRET"
	}

	secret := os.Getenv(envVar)
	if secret == "" {
		return "dev-secret-change-in-production-min-32-chars"
	}
	return secret
}

// Group looks up a motion group by name.
func (c *ControllerConfig) Group(name string) (MotionGroupConfig, bool) {
	for _, g := range c.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return MotionGroupConfig{}, false
}
