package config

import (
	"log"

	"github.com/spf13/viper"
)

type Database struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"ssl-mode"`
}

type Mongo struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type KafkaBroker struct {
	URL string `mapstructure:"url"`
}

type KafkaTopic struct {
	StatusEvents string `mapstructure:"status-events"`
}

type KafkaReader struct {
	GroupID string `mapstructure:"group-id"`
}

type Kafka struct {
	Enabled bool        `mapstructure:"enabled"`
	Broker  KafkaBroker `mapstructure:"broker"`
	Topic   KafkaTopic  `mapstructure:"topic"`
	Reader  KafkaReader `mapstructure:"reader"`
}

type Gateway struct {
	Name      string `mapstructure:"name"`
	URL       string `mapstructure:"url"`
	APIKey    string `mapstructure:"api-key"`
	SecretKey string `mapstructure:"secret-key"`
	TimeoutMs int    `mapstructure:"timeout-ms"`
}

type Auth struct {
	JWTSecret string `mapstructure:"jwt-secret"`
}

type Server struct {
	Port string `mapstructure:"port"`
}

type Metrics struct {
	URL          string `mapstructure:"url"`
	IntervalMs   int    `mapstructure:"interval-ms"`
	CommonLabels string `mapstructure:"common-labels"`
}

type Logs struct {
	URL string `mapstructure:"url"`
}

type Config struct {
	Database Database `mapstructure:"database"`
	Mongo    Mongo    `mapstructure:"mongo"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Gateway  Gateway  `mapstructure:"gateway"`
	Auth     Auth     `mapstructure:"auth"`
	Server   Server   `mapstructure:"server"`
	Metrics  Metrics  `mapstructure:"metrics"`
	Logs     Logs     `mapstructure:"logs"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyEnvOverrides(&config)

	return &config, nil
}

func MustLoadConfig(path string) *Config {
	config, err := LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return config
}
