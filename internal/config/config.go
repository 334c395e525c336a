package config

import "time"

type Config struct {
	Service   *ServiceConfig
	Redis     *RedisConfig
	Postgres  *PostgresConfig
	Twilio    *TwilioConfig
	Mailer    *MailerConfig
	Worker    *WorkerConfig
	Scheduler *SchedulerConfig
	Fanout    *FanoutConfig
	Logger    *LoggerConfig
	Tracer    *TracerConfig
	JWTSecret string
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type TwilioConfig struct {
	SID   string
	Token string
	From  string
}

type MailerConfig struct {
	Endpoint string
	APIKey   string
	From     string
}

type WorkerConfig struct {
	Group       string
	MaxAttempts int
	BackoffBase time.Duration
	DedupTTL    time.Duration
}

type SchedulerConfig struct {
	Interval     time.Duration
	ReminderHour int
}

// FanoutConfig selects how live events reach recipients: "local" delivers
// through the in-process registry only, "redis" additionally bridges pushes
// across instances over pub/sub.
type FanoutConfig struct {
	Mode string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Address string
	Enabled bool
}
