package config

import "os"

// Secrets come from the environment and take precedence over the yaml file,
// which carries non-sensitive defaults only.
func applyEnvOverrides(config *Config) {
	setIfPresent(&config.Database.Password, "DATABASE_PASSWORD")
	setIfPresent(&config.Mongo.URI, "MONGO_URI")
	setIfPresent(&config.Gateway.APIKey, "GATEWAY_API_KEY")
	setIfPresent(&config.Gateway.SecretKey, "GATEWAY_SECRET_KEY")
	setIfPresent(&config.Auth.JWTSecret, "AUTH_JWT_SECRET")
}

func setIfPresent(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}
