package config

import (
	"fmt"
	"time"

	"github.com/gotify/configor"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Gemini   GeminiConfig
	Grading  GradingConfig
	Storage  StorageConfig
	Qdrant   QdrantConfig
	Report   ReportConfig
	Resume   ResumeConfig
}

type AppConfig struct {
	Port                  string `default:"3000" env:"PORT"`
	Env                   string `default:"development" env:"ENV"`
	LogLevel              string `default:"info" env:"LOG_LEVEL"`
	RequestTimeoutSeconds int    `default:"60" env:"REQUEST_TIMEOUT_SECONDS"`
}

type DatabaseConfig struct {
	Driver         string `default:"sqlite" env:"DB_DRIVER"`
	Host           string `default:"localhost" env:"DB_HOST"`
	Port           string `default:"5432" env:"DB_PORT"`
	User           string `default:"postgres" env:"DB_USER"`
	Password       string `default:"postgres" env:"DB_PASSWORD"`
	DBName         string `default:"talentflow" env:"DB_NAME"`
	SQLitePath     string `default:"talentflow.db" env:"DB_SQLITE_PATH"`
	DebugMode      *bool  `default:"false" env:"DB_DEBUG_MODE"`
	MigrateOnStart *bool  `default:"true" env:"DB_MIGRATE_ON_START"`
}

// GeminiConfig is resolved once at start and handed to every AI component.
type GeminiConfig struct {
	APIKey     string `default:"" env:"GEMINI_API_KEY"`
	Backend    string `default:"gemini" env:"GEMINI_BACKEND"`
	Project    string `default:"" env:"GEMINI_PROJECT"`
	Location   string `default:"us-central1" env:"GEMINI_LOCATION"`
	TextModel  string `default:"gemini-2.5-flash" env:"GEMINI_TEXT_MODEL"`
	EmbedModel string `default:"text-embedding-004" env:"GEMINI_EMBED_MODEL"`
}

type GradingConfig struct {
	PollIntervalSeconds   int `default:"2" env:"GRADING_POLL_INTERVAL_SECONDS"`
	PollMaxAttempts       int `default:"10" env:"GRADING_POLL_MAX_ATTEMPTS"`
	ClaimLeaseSeconds     int `default:"300" env:"GRADING_CLAIM_LEASE_SECONDS"`
	WorkerConcurrency     int `default:"3" env:"WORKER_CONCURRENCY"`
	QueueSize             int `default:"100" env:"WORKER_QUEUE_SIZE"`
	PollerIntervalSeconds int `default:"30" env:"WORKER_POLLER_INTERVAL_SECONDS"`
}

type StorageConfig struct {
	Driver      string `default:"local" env:"STORAGE_DRIVER"`
	UploadPath  string `default:"./uploads" env:"UPLOAD_PATH"`
	MaxFileSize int64  `default:"104857600" env:"MAX_FILE_SIZE"`
	S3          S3Config
}

type S3Config struct {
	Endpoint        string `default:"localhost:9000" env:"S3_ENDPOINT"`
	AccessKeyID     string `default:"" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `default:"" env:"S3_SECRET_ACCESS_KEY"`
	BucketName      string `default:"talentflow" env:"S3_BUCKET_NAME"`
	UseSSL          *bool  `default:"false" env:"S3_USE_SSL"`
}

type QdrantConfig struct {
	URL        string `default:"" env:"QDRANT_URL"`
	APIKey     string `default:"" env:"QDRANT_API_KEY"`
	Collection string `default:"interview_questions" env:"QDRANT_COLLECTION"`
}

type ReportConfig struct {
	InvalidateOnResubmit *bool `default:"true" env:"REPORT_INVALIDATE_ON_RESUBMIT"`
}

type ResumeConfig struct {
	MaxChars int `default:"5000" env:"RESUME_MAX_CHARS"`
}

func configFiles() []string {
	return []string{"config.yml"}
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found. Using environment and defaults.")
	}

	cfg := new(Config)
	if err := configor.New(&configor.Config{}).Load(cfg, configFiles()...); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

func (c *Config) GetDatabaseDSN() string {
	switch c.Database.Driver {
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.Database.User,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.DBName,
		)
	case "sqlite":
		return c.Database.SQLitePath
	default:
		return fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			c.Database.Host,
			c.Database.Port,
			c.Database.User,
			c.Database.Password,
			c.Database.DBName,
		)
	}
}

func (g GradingConfig) PollInterval() time.Duration {
	return time.Duration(g.PollIntervalSeconds) * time.Second
}

func (g GradingConfig) ClaimLease() time.Duration {
	return time.Duration(g.ClaimLeaseSeconds) * time.Second
}

func (g GradingConfig) PollerInterval() time.Duration {
	return time.Duration(g.PollerIntervalSeconds) * time.Second
}

func (a AppConfig) RequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development"
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

func (d DatabaseConfig) Debug() bool {
	return boolValue(d.DebugMode)
}

func (d DatabaseConfig) Migrate() bool {
	return boolValue(d.MigrateOnStart)
}

func (s S3Config) SSL() bool {
	return boolValue(s.UseSSL)
}

func (r ReportConfig) Invalidate() bool {
	return boolValue(r.InvalidateOnResubmit)
}
