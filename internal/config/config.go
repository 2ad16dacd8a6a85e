package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	LLMAPIKey         string `env:"LLM_API_KEY,required"`
	LLMBaseURL        string `env:"LLM_BASE_URL" envDefault:"https://api.openai.com/v1"`
	LLMModel          string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMEmbeddingModel string `env:"LLM_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`

	JWTSecret           string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"60"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	NaverClientID     string `env:"NAVER_CLIENT_ID"`
	NaverClientSecret string `env:"NAVER_CLIENT_SECRET"`
	SearchTimezone    string `env:"SEARCH_TIMEZONE" envDefault:"Asia/Seoul"`
	WebResultCount    int    `env:"WEB_RESULT_COUNT" envDefault:"3"`
	PageCharBudget    int    `env:"PAGE_CHAR_BUDGET" envDefault:"10000"`

	RetrievalTopK     int     `env:"RETRIEVAL_TOP_K" envDefault:"5"`
	RetrievalMinScore float64 `env:"RETRIEVAL_MIN_SCORE" envDefault:"0"`

	PipelineWorkers   int           `env:"PIPELINE_WORKERS" envDefault:"16"`
	PipelineQueueWait time.Duration `env:"PIPELINE_QUEUE_WAIT" envDefault:"2s"`

	RetrievalTimeout  time.Duration `env:"RETRIEVAL_TIMEOUT" envDefault:"10s"`
	DecisionTimeout   time.Duration `env:"DECISION_TIMEOUT" envDefault:"15s"`
	SearchTimeout     time.Duration `env:"SEARCH_TIMEOUT" envDefault:"5s"`
	FetchTimeout      time.Duration `env:"FETCH_TIMEOUT" envDefault:"8s"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"5m"`

	SendRateLimit  int           `env:"SEND_RATE_LIMIT" envDefault:"20"`
	SendRateWindow time.Duration `env:"SEND_RATE_WINDOW" envDefault:"1m"`
	ThreadLockTTL  time.Duration `env:"THREAD_LOCK_TTL" envDefault:"6m"`

	TracingEnabled bool   `env:"TRACING_ENABLED" envDefault:"false"`
	ServiceName    string `env:"SERVICE_NAME" envDefault:"llm-chat"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
