package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env         string
	Port        string
	DatabaseURL string
	RedisURL    string

	// Payment protocol settings advertised in the 402 requirements and
	// enforced against submitted proofs.
	PayToAddress       string
	PaymentAssetID     string
	PaymentAmount      int64 // base units per verification
	PaymentNetwork     string
	FacilitatorURL     string
	FacilitatorTimeout time.Duration

	HealthAdminKeyHash string // bcrypt hash; empty disables admin endpoints

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	amount := viper.GetInt64("PAYMENT_AMOUNT_BASE_UNITS")
	if amount == 0 {
		amount = 10000
	}
	timeoutSecs := viper.GetInt("FACILITATOR_TIMEOUT_SECONDS")
	if timeoutSecs == 0 {
		timeoutSecs = 10
	}
	rps := viper.GetFloat64("RATE_LIMIT_RPS")
	if rps == 0 {
		rps = 5
	}
	burst := viper.GetInt("RATE_LIMIT_BURST")
	if burst == 0 {
		burst = 20
	}
	network := viper.GetString("PAYMENT_NETWORK")
	if network == "" {
		network = "algorand-testnet"
	}

	return &Config{
		Env:                env,
		Port:               port,
		DatabaseURL:        dbURL,
		RedisURL:           viper.GetString("REDIS_URL"),
		PayToAddress:       viper.GetString("PAY_TO_ADDRESS"),
		PaymentAssetID:     viper.GetString("PAYMENT_ASSET_ID"),
		PaymentAmount:      amount,
		PaymentNetwork:     network,
		FacilitatorURL:     strings.TrimRight(viper.GetString("FACILITATOR_URL"), "/"),
		FacilitatorTimeout: time.Duration(timeoutSecs) * time.Second,
		HealthAdminKeyHash: viper.GetString("HEALTH_ADMIN_KEY_HASH"),
		RateLimitRPS:       rps,
		RateLimitBurst:     burst,
	}, nil
}
