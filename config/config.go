// Package config provides configuration management for the relay service.
// Configuration can be loaded from YAML files and overridden by environment variables.
package config

import (
	"errors"
	"fmt"
	"jiorelay/entity"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	EnvProduction = "production"
	EnvUAT        = "uat"
)

// Config holds all configuration for the relay service.
// Values can be set via YAML configuration file or environment variables.
// Environment variables take precedence over YAML values.
type Config struct {
	IsDebug bool `yaml:"is_debug" env:"DEBUG" env-default:"false"`
	Listen  struct {
		BindIP   string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env:"PORT" env-default:"5100"`
		TLS      bool   `yaml:"tls_enabled" env:"TLS_ENABLED" env-default:"false"`
		CertFile string `yaml:"cert_file" env:"TLS_CERT_FILE" env-default:""`
		KeyFile  string `yaml:"key_file" env:"TLS_KEY_FILE" env-default:""`
	} `yaml:"listen"`
	Merchant struct {
		Id  string `yaml:"id" env:"MERCHANT_ID" env-required:"true"`
		Key string `yaml:"key" env:"MERCHANT_KEY" env-required:"true"`
	} `yaml:"merchant"`
	Gateway struct {
		Environment   string        `yaml:"environment" env:"GATEWAY_ENVIRONMENT" env-default:"production"`
		ProductionUrl string        `yaml:"production_url" env:"GATEWAY_PRODUCTION_URL" env-default:"https://jiopay.co.in/pg/api"`
		UatUrl        string        `yaml:"uat_url" env:"GATEWAY_UAT_URL" env-default:""`
		ReturnUrl     string        `yaml:"return_url" env:"GATEWAY_RETURN_URL" env-default:""`
		Timeout       time.Duration `yaml:"timeout" env:"GATEWAY_TIMEOUT" env-default:"30s"`
	} `yaml:"gateway"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:""`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"relay"`
	} `yaml:"mongo"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"false"`
		BindIP  string `yaml:"bind_ip" env:"METRICS_BIND_IP" env-default:"0.0.0.0"`
		Port    string `yaml:"port" env:"METRICS_PORT" env-default:"9100"`
	} `yaml:"metrics"`
}

var instance *Config
var once sync.Once

// GetConfig loads configuration from the specified YAML file path.
// When the file does not exist, configuration is read from the environment only.
// This function uses a singleton pattern and only loads the config once.
//
// Example:
//
//	cfg, err := config.GetConfig("config.yml")
//	if err != nil {
//	    log.Fatal(err)
//	}
func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance, err = Load(path)
	})
	return instance, err
}

// Load reads and validates a fresh configuration without touching the singleton.
func Load(path string) (*Config, error) {
	conf := &Config{}
	var err error
	if _, statErr := os.Stat(path); path != "" && statErr == nil {
		err = cleanenv.ReadConfig(path, conf)
	} else {
		err = cleanenv.ReadEnv(conf)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("load config: %w; %s", err, desc)
	}
	if err = conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Merchant.Id) == "" || strings.TrimSpace(c.Merchant.Key) == "" {
		return errors.New("merchant id and key must be configured")
	}
	if _, err := c.BaseUrl(); err != nil {
		return err
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive, got %s", c.Gateway.Timeout)
	}
	return nil
}

// BaseUrl returns the processor base url of the selected environment.
func (c *Config) BaseUrl() (string, error) {
	var base string
	switch strings.ToLower(c.Gateway.Environment) {
	case EnvProduction, "":
		base = c.Gateway.ProductionUrl
	case EnvUAT:
		base = c.Gateway.UatUrl
	default:
		return "", fmt.Errorf("unknown gateway environment: %s", c.Gateway.Environment)
	}
	if base == "" {
		return "", fmt.Errorf("base url for %s environment is not configured", c.Gateway.Environment)
	}
	return strings.TrimRight(base, "/"), nil
}

func (c *Config) Credential() (entity.MerchantCredential, error) {
	return entity.NewMerchantCredential(c.Merchant.Id, c.Merchant.Key)
}
