// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath      = pflag.String("config", ".", "Directory containing config.toml")
	validLogLevels  = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers  = []string{"sqlite", "postgres"}
	defaultCORSList = []string{"http://localhost:5173"}
)

type Config struct {
	LogLevel string

	Host     HostConfig
	DB       DBConfig
	JWT      JWTConfig
	Password PasswordConfig
	Tokens   TokensConfig
	Mail     MailConfig
	OAuth    map[string]OAuthProviderConfig

	FrontendURL string
	RateLimit   int
}

type HostConfig struct {
	Port               int
	Domain             string
	CORS               []string
	SSLEnabled         bool
	CertificatePath    string
	CertificateKeyPath string
}

type DBConfig struct {
	Driver string
	DSN    string
}

type JWTConfig struct {
	ShortSecret string
	LongSecret  string
	ShortTTL    time.Duration
	LongTTL     time.Duration
	Issuer      string
}

// PasswordConfig holds the strength rules applied to new passwords
type PasswordConfig struct {
	MinLength int
	MinLower  int
	MinUpper  int
	MinDigits int
}

type TokensConfig struct {
	EmailVerificationTTL time.Duration
	TVLoginTTL           time.Duration
	CleanupInterval      time.Duration
}

type MailConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Sender         string
	Timeout        time.Duration
	ResendCooldown time.Duration
}

type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() (*Config, error) {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("host.ssl.enabled", "host_ssl_enabled")
	v.BindEnv("host.ssl.certificate_path", "host_ssl_certificate_path")
	v.BindEnv("host.ssl.certificate_key_path", "host_ssl_certificate_key_path")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("jwt.short_secret", "jwt_short_secret")
	v.BindEnv("jwt.long_secret", "jwt_long_secret")
	v.BindEnv("jwt.short_ttl", "jwt_short_ttl")
	v.BindEnv("jwt.long_ttl", "jwt_long_ttl")
	v.BindEnv("jwt.issuer", "jwt_issuer")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.username", "mail_username")
	v.BindEnv("mail.password", "mail_password")
	v.BindEnv("mail.sender", "mail_sender")

	v.BindEnv("frontend.url", "frontend_url")
	v.BindEnv("security.rate_limit", "security_rate_limit")

	for _, p := range []string{"discord", "twitch"} {
		v.BindEnv("oauth."+p+".client_id", "oauth_"+p+"_client_id")
		v.BindEnv("oauth."+p+".client_secret", "oauth_"+p+"_client_secret")
		v.BindEnv("oauth."+p+".redirect_url", "oauth_"+p+"_redirect_url")
	}

	//
	// Defaults
	//
	SetDefaults()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return nil, errors.New("config.toml file is missing")
		}

		return nil, fmt.Errorf("failed to read config file, %w", err)
	}

	if v.GetString("jwt.short_secret") == "" || v.GetString("jwt.long_secret") == "" {
		fmt.Println("WARNING: You haven't set both JWT secrets, so they have been generated for you. Please set them as environment variables or in the config.toml file.\n\nshort_secret = \"" + genSecret() + "\"\nlong_secret = \"" + genSecret() + "\"\n\nPaste them into the [jwt] section of your config.toml file.")
		os.Exit(0)
	}

	c := Load()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// SetDefaults registers the default value of every key
func SetDefaults() {
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors", defaultCORSList)
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("jwt.short_ttl", time.Hour)
	v.SetDefault("jwt.long_ttl", time.Hour*24*30)
	v.SetDefault("jwt.issuer", "auth-api")

	v.SetDefault("password.min_length", 8)
	v.SetDefault("password.min_lower", 1)
	v.SetDefault("password.min_upper", 1)
	v.SetDefault("password.min_digits", 1)

	v.SetDefault("tokens.email_verification_ttl", time.Hour*24)
	v.SetDefault("tokens.tv_login_ttl", time.Minute*10)
	v.SetDefault("tokens.cleanup_interval", time.Hour)

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.timeout", time.Second*10)
	v.SetDefault("mail.resend_cooldown", time.Minute*2)

	v.SetDefault("frontend.url", "http://localhost:5173/")
	v.SetDefault("security.rate_limit", 10)
}

// Load builds a Config out of the values currently held by viper
func Load() *Config {
	cors := v.GetStringSlice("host.cors")
	if len(cors) == 1 && strings.Contains(cors[0], ",") {
		cors = strings.Split(cors[0], ",")
	}

	c := &Config{
		LogLevel: v.GetString("app.log_level"),
		Host: HostConfig{
			Port:               v.GetInt("host.port"),
			Domain:             v.GetString("host.domain"),
			CORS:               cors,
			SSLEnabled:         v.GetBool("host.ssl.enabled"),
			CertificatePath:    v.GetString("host.ssl.certificate_path"),
			CertificateKeyPath: v.GetString("host.ssl.certificate_key_path"),
		},
		DB: DBConfig{
			Driver: v.GetString("db.driver"),
			DSN:    v.GetString("db.dsn"),
		},
		JWT: JWTConfig{
			ShortSecret: v.GetString("jwt.short_secret"),
			LongSecret:  v.GetString("jwt.long_secret"),
			ShortTTL:    v.GetDuration("jwt.short_ttl"),
			LongTTL:     v.GetDuration("jwt.long_ttl"),
			Issuer:      v.GetString("jwt.issuer"),
		},
		Password: PasswordConfig{
			MinLength: v.GetInt("password.min_length"),
			MinLower:  v.GetInt("password.min_lower"),
			MinUpper:  v.GetInt("password.min_upper"),
			MinDigits: v.GetInt("password.min_digits"),
		},
		Tokens: TokensConfig{
			EmailVerificationTTL: v.GetDuration("tokens.email_verification_ttl"),
			TVLoginTTL:           v.GetDuration("tokens.tv_login_ttl"),
			CleanupInterval:      v.GetDuration("tokens.cleanup_interval"),
		},
		Mail: MailConfig{
			Host:           v.GetString("mail.host"),
			Port:           v.GetInt("mail.port"),
			Username:       v.GetString("mail.username"),
			Password:       v.GetString("mail.password"),
			Sender:         v.GetString("mail.sender"),
			Timeout:        v.GetDuration("mail.timeout"),
			ResendCooldown: v.GetDuration("mail.resend_cooldown"),
		},
		OAuth:       map[string]OAuthProviderConfig{},
		FrontendURL: v.GetString("frontend.url"),
		RateLimit:   v.GetInt("security.rate_limit"),
	}

	for _, p := range []string{"discord", "twitch"} {
		id := v.GetString("oauth." + p + ".client_id")
		if id == "" {
			continue
		}

		c.OAuth[p] = OAuthProviderConfig{
			ClientID:     id,
			ClientSecret: v.GetString("oauth." + p + ".client_secret"),
			RedirectURL:  v.GetString("oauth." + p + ".redirect_url"),
		}
	}

	return c
}

// Validate checks that the loaded values make sense together
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.Host.Port <= 0 {
		return errors.New("invalid port provided")
	}

	if c.Host.SSLEnabled {
		if c.Host.CertificatePath == "" {
			return errors.New("no ssl certificate path provided")
		}

		if c.Host.CertificateKeyPath == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if !slices.Contains(validDBDrivers, c.DB.Driver) {
		return errors.New("invalid database driver provided")
	}

	if c.DB.DSN == "" {
		return errors.New("db.dsn can't be empty")
	}

	if c.JWT.ShortSecret == "" || c.JWT.LongSecret == "" {
		return errors.New("both jwt.short_secret and jwt.long_secret must be set")
	}

	// A shared secret would let a short token pass as a long one and the other way around
	if c.JWT.ShortSecret == c.JWT.LongSecret {
		return errors.New("jwt.short_secret and jwt.long_secret must be different")
	}

	if c.JWT.ShortTTL <= 0 || c.JWT.LongTTL <= 0 {
		return errors.New("jwt token lifetimes must be bigger than 0")
	}

	if c.JWT.ShortTTL >= c.JWT.LongTTL {
		return errors.New("jwt.short_ttl must be shorter than jwt.long_ttl")
	}

	if c.Password.MinLength < 8 {
		return errors.New("password.min_length can't be lower than 8")
	}

	if c.Password.MinLower < 0 || c.Password.MinUpper < 0 || c.Password.MinDigits < 0 {
		return errors.New("password character rules can't be negative")
	}

	if c.Tokens.EmailVerificationTTL <= 0 || c.Tokens.TVLoginTTL <= 0 {
		return errors.New("token lifetimes must be bigger than 0")
	}

	if c.Tokens.CleanupInterval <= 0 {
		return errors.New("tokens.cleanup_interval must be bigger than 0")
	}

	if c.Mail.Host == "" {
		return errors.New("mail.host can't be empty")
	}

	if c.Mail.Sender == "" {
		return errors.New("mail.sender can't be empty")
	}

	if c.Mail.Timeout <= 0 {
		return errors.New("mail.timeout must be bigger than 0")
	}

	if c.FrontendURL == "" {
		return errors.New("frontend.url can't be empty")
	}

	if c.RateLimit <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	for name, p := range c.OAuth {
		if p.ClientSecret == "" {
			return fmt.Errorf("oauth.%s.client_secret can't be empty", name)
		}

		if p.RedirectURL == "" {
			return fmt.Errorf("oauth.%s.redirect_url can't be empty", name)
		}
	}

	return nil
}
