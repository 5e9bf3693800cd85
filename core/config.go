package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName                   string
		Env                       string // DEV (local; default), TEST, QA, PROD
		Build                     string
		Debug                     bool
		TestMode                  bool
		SecretKey                 string
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration
		SendgridAPIKey            string
		RollbarToken              string

		Server    ServerConfig
		Database  DatabaseConfig
		AI        AIConfig
		Realtime  RealtimeConfig
		Scheduler SchedulerConfig

		defaultFromEmail string
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
		AllowedOrigins            []string
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		InMemory      bool // no Postgres; DEV and tests only
	}

	AIConfig struct {
		APIKey         string
		Model          string
		EmbeddingModel string
		Temperature    float32
		Timeout        time.Duration
		MaxAttempts    int
	}

	RealtimeConfig struct {
		UsePostgres bool // fan events out through LISTEN/NOTIFY
		Channel     string
	}

	SchedulerConfig struct {
		Enabled          bool
		LiveReminderLead time.Duration
	}
)

func (db DatabaseConfig) Address() string {
	return db.Host + ":" + db.Port
}

// DefaultFromEmail parses the configured sender, falling back to the raw value as the address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Academia")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "k2v8-fa!s0p^3x=e4lq(bn7@wz&yt%d$6cjr+m1gh*u9#o")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Academia <noreply@localhost>")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_addr", ":8000")
	v.SetDefault("server_debugHost", ":4000")
	v.SetDefault("server_jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server_jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server_shutdownTimeout", 5*time.Second)
	v.SetDefault("server_allowedOrigins", []string{"*"})
	v.SetDefault("server_disableReqLogs", false)

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "academia")
	v.SetDefault("database_user", "academia")
	v.SetDefault("database_password", "")
	v.SetDefault("database_adminUser", "postgres")
	v.SetDefault("database_adminPassword", "")
	v.SetDefault("database_disableTLS", true)
	v.SetDefault("database_inMemory", false)

	v.SetDefault("ai_apiKey", "")
	v.SetDefault("ai_model", "gemini-2.0-flash")
	v.SetDefault("ai_embeddingModel", "text-embedding-004")
	v.SetDefault("ai_temperature", 0.4)
	v.SetDefault("ai_timeout", 60*time.Second)
	v.SetDefault("ai_maxAttempts", 3)

	v.SetDefault("realtime_usePostgres", false)
	v.SetDefault("realtime_channel", "academia_events")

	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_liveReminderLead", 30*time.Minute)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("database_inMemory", true)
		v.SetDefault("scheduler_enabled", false)
		v.SetDefault("server_disableReqLogs", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		AppName:                   v.GetString("appName"),
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		SendgridAPIKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("server_host"),
			Addr:                      v.GetString("server_addr"),
			DebugHost:                 v.GetString("server_debugHost"),
			JWTExpirationDelta:        v.GetDuration("server_jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server_shutdownTimeout"),
			AllowedOrigins:            v.GetStringSlice("server_allowedOrigins"),
			DisableReqLogs:            v.GetBool("server_disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_adminUser"),
			AdminPassword: v.GetString("database_adminPassword"),
			DisableTLS:    v.GetBool("database_disableTLS"),
			InMemory:      v.GetBool("database_inMemory"),
		},
		AI: AIConfig{
			APIKey:         v.GetString("ai_apiKey"),
			Model:          v.GetString("ai_model"),
			EmbeddingModel: v.GetString("ai_embeddingModel"),
			Temperature:    float32(v.GetFloat64("ai_temperature")),
			Timeout:        v.GetDuration("ai_timeout"),
			MaxAttempts:    v.GetInt("ai_maxAttempts"),
		},
		Realtime: RealtimeConfig{
			UsePostgres: v.GetBool("realtime_usePostgres"),
			Channel:     v.GetString("realtime_channel"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          v.GetBool("scheduler_enabled"),
			LiveReminderLead: v.GetDuration("scheduler_liveReminderLead"),
		},
	}
}

// NewTestConfig returns the TEST configuration regardless of the ENV variable.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.Debug = false
	conf.TestMode = true
	conf.SecretKey = "secret"
	conf.Database.InMemory = true
	conf.Scheduler.Enabled = false
	conf.Server.DisableReqLogs = true
	conf.AI.MaxAttempts = 1
	return conf
}
