package config

import (
	"errors"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN            string `env:"DSN,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout   int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		MaxOpenConns   int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns   int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime    int    `env:"MAX_IDLE_TIME" envDefault:"60"`
		AutoMigrate    bool   `env:"AUTO_MIGRATE" envDefault:"true"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"管理员"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"1209600"` // 14 天
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Email struct {
		From string `env:"FROM" envDefault:"roster@localhost"`
		SMTP struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		Queue          string `env:"QUEUE" envDefault:"roster_notifications"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host           string `env:"HOST" envDefault:"localhost"`
		Port           int    `env:"PORT" envDefault:"6379"`
		Password       string `env:"PASSWORD"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	Telegram struct {
		BotToken string `env:"BOT_TOKEN"` // 为空时不发送 Telegram 通知
		Debug    bool   `env:"DEBUG" envDefault:"false"`
	} `envPrefix:"TELEGRAM_"`
	Roster struct {
		MinRestHours      float64 `env:"MIN_REST_HOURS" envDefault:"12"`
		MaxWorkersPerSite int     `env:"MAX_WORKERS_PER_SITE" envDefault:"4"`
		SlotLockTTL       int     `env:"SLOT_LOCK_TTL" envDefault:"10"`
	} `envPrefix:"ROSTER_"`
	Approval struct {
		AutoApproveHours  float64 `env:"AUTO_APPROVE_HOURS" envDefault:"3"`
		MaxExtensionHours float64 `env:"MAX_EXTENSION_HOURS" envDefault:"12"`
		BatchTTL          int     `env:"BATCH_TTL" envDefault:"86400"` // 1 天
	} `envPrefix:"APPROVAL_"`
	Pay struct {
		LeaveHourlyRate  float64 `env:"LEAVE_HOURLY_RATE" envDefault:"12.50"`
		LeaveHoursPerDay float64 `env:"LEAVE_HOURS_PER_DAY" envDefault:"8"`
	} `envPrefix:"PAY_"`
	Leave struct {
		AccrualHoursPerQuarter float64 `env:"ACCRUAL_HOURS_PER_QUARTER" envDefault:"28"`
		MaxCarryOverHours      float64 `env:"MAX_CARRY_OVER_HOURS" envDefault:"40"`
	} `envPrefix:"LEAVE_"`
	Seed struct {
		EmailDomain string `env:"EMAIL_DOMAIN" envDefault:"example.com"`
		AgencyName  string `env:"AGENCY_NAME" envDefault:"默认派遣公司"`
	} `envPrefix:"SEED_"`
}

// LoadConfig 从环境变量读取配置，当前目录存在 .env 文件时先加载它
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	return cfg, nil
}
