package configuration

import (
	"fmt"
	"os"
	"strconv"

	"kreatr-scheduler/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Scheduler   Scheduler   `json:"scheduler"`
	Platforms   Platforms   `json:"platforms"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	OAuth       OAuth       `json:"oauth"`
}

type App struct {
	Port        int    `json:"port"`
	Env         string `json:"env"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
}

type Database struct {
	Psql  Db `json:"psql"`
	MySql Db `json:"mysql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"string"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// Scheduler controls the dispatch loop.
type Scheduler struct {
	TickSeconds           int    `json:"tickSeconds"`
	BatchSize             int    `json:"batchSize"`
	ItemParallel          int    `json:"itemParallel"`
	PostParallel          int    `json:"postParallel"`
	PublishTimeoutSeconds int    `json:"publishTimeoutSeconds"`
	RetryBatchSize        int    `json:"retryBatchSize"`
	CronSecret            string `json:"cronSecret"`
}

// Platforms lists which publishers are wired in this deployment.
type Platforms struct {
	Enabled   []string    `json:"enabled"`
	Twitter   PlatformAPI `json:"twitter"`
	Instagram PlatformAPI `json:"instagram"`
	TikTok    PlatformAPI `json:"tiktok"`
}

type PlatformAPI struct {
	Host string `json:"host"`
}

type Pubsub struct {
	ProjectID    string `json:"projectID"`
	OutcomeTopic string `json:"outcomeTopic"`
}

type ServiceBus struct {
	Namespace  string `json:"namespace"`
	AlertQueue string `json:"alertQueue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
}

// OAuth holds third-party platform OAuth client credentials
type OAuth struct {
	Twitter   OAuthClient `json:"twitter"`
	Instagram OAuthClient `json:"instagram"`
	TikTok    OAuthClient `json:"tiktok"`
	YouTube   OAuthClient `json:"youtube"`
}

type OAuthClient struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	RedirectURI  string `json:"redirectURI"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initScheduler(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error if desired
			logger.GetLogger().Warn("Config file not found")
		} else {
			// Config file was found but another error was produced
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	// Config file found and successfully parsed
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}

	// Optional MSSQL config via environment variables (for Azure SQL in production)
	if C.Database.Mssql.Name == "" {
		if v := os.Getenv("MSSQL_DB_NAME"); v != "" {
			C.Database.Mssql.Name = v
		}
	}
	if C.Database.Mssql.Host == "" {
		if v := os.Getenv("MSSQL_HOST"); v != "" {
			C.Database.Mssql.Host = v
		}
	}
	if C.Database.Mssql.Password == "" {
		if v := os.Getenv("MSSQL_PASSWORD"); v != "" {
			C.Database.Mssql.Password = v
		}
	}
	if C.Database.Mssql.Port == "" {
		if v := os.Getenv("MSSQL_PORT"); v != "" {
			C.Database.Mssql.Port = v
		} else {
			C.Database.Mssql.Port = "1433"
		}
	}
	if C.Database.Mssql.User == "" {
		if v := os.Getenv("MSSQL_USER"); v != "" {
			C.Database.Mssql.User = v
		}
	}
}

func initApp(C *Config) {
	if C.App.Env == "" {
		C.App.Env = os.Getenv("ENV")
	}
	if C.App.Env == "" {
		C.App.Env = "development"
	}
	// Prefer SECRET_KEY from environment for JWT verification; overrides config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	// Allow overriding TLS settings via env variables (both enable and disable)
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initScheduler(C *Config) {
	if v := os.Getenv("CRON_SECRET"); v != "" {
		C.Scheduler.CronSecret = v
	}
	if v := os.Getenv("SCHEDULER_TICK_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			C.Scheduler.TickSeconds = n
		}
	}
	if C.Scheduler.TickSeconds == 0 {
		C.Scheduler.TickSeconds = 15
	}
	if C.Scheduler.BatchSize == 0 {
		C.Scheduler.BatchSize = 50
	}
	if C.Scheduler.ItemParallel == 0 {
		C.Scheduler.ItemParallel = 4
	}
	if C.Scheduler.PostParallel == 0 {
		C.Scheduler.PostParallel = 3
	}
	if C.Scheduler.PublishTimeoutSeconds == 0 {
		C.Scheduler.PublishTimeoutSeconds = 30
	}
	if C.Scheduler.RetryBatchSize == 0 {
		C.Scheduler.RetryBatchSize = 10
	}
	if len(C.Platforms.Enabled) == 0 {
		C.Platforms.Enabled = []string{"tiktok", "instagram", "twitter", "youtube"}
	}
	if C.Scheduler.CronSecret == "" {
		logger.GetLogger().Warn("Scheduler.CronSecret not set; the cron endpoint will reject all requests. Provide CRON_SECRET via environment.")
	}
}
