package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort       string   `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv         string   `env:"APP_ENV" envDefault:"production"`
	GroqAPIKey     string   `env:"GROQ_API_KEY,required"`
	LLMBaseURL     string   `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMModel       string   `env:"LLM_MODEL" envDefault:"llama-3.3-70b-versatile"`
	DataFile       string   `env:"DATA_FILE" envDefault:"data/chatbot.json"`
	DatabaseURL    string   `env:"DATABASE_URL"`
	RedisAddr      string   `env:"REDIS_ADDR"`
	RedisPassword  string   `env:"REDIS_PASSWORD"`
	RedisDB        int      `env:"REDIS_DB" envDefault:"0"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment indica si el servicio corre en modo desarrollo.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
