package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig `json:"server"`

	// MySQL holds users, contacts and messages
	Database DatabaseConfig `json:"database"`

	// MongoDB holds profile photo blobs (GridFS)
	MongoDB MongoDBConfig `json:"mongodb"`

	Auth AuthConfig `json:"auth"`

	Realtime RealtimeConfig `json:"realtime"`

	Logging LoggingConfig `json:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port         string `json:"port"`
	Host         string `json:"host"`
	AdminPort    string `json:"admin_port"` // gRPC health + reflection
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	Environment  string `json:"environment"` // development, staging, production
	FrontendURL  string `json:"frontend_url"`
	MediaBaseURL string `json:"media_base_url"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	DatabaseName string `json:"database_name"`
	MaxOpenConns int    `json:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

type MongoDBConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	Database string `json:"database"`
	Bucket   string `json:"bucket"`
}

type AuthConfig struct {
	JWTSecret string        `json:"-"`
	TokenTTL  time.Duration `json:"token_ttl"`
	Issuer    string        `json:"issuer"`
}

// RealtimeConfig tunes the websocket peers
type RealtimeConfig struct {
	WriteWait      time.Duration `json:"write_wait"`
	PongWait       time.Duration `json:"pong_wait"`
	PingPeriod     time.Duration `json:"ping_period"`
	MaxMessageSize int64         `json:"max_message_size"`
	SendBuffer     int           `json:"send_buffer"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	Format     string `json:"format"`      // json, text
	OutputPath string `json:"output_path"` // stdout, stderr, or file path
}

// ClientConfig is used by the terminal client and anything built on internal/client.
type ClientConfig struct {
	ServerURL         string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
	DialTimeout       time.Duration
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	pongWait := getDurationOrDefault("WS_PONG_WAIT", 60*time.Second)

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvOrDefault("PORT", "8080"),
			AdminPort:    getEnvOrDefault("ADMIN_PORT", "7003"),
			ReadTimeout:  getIntOrDefault("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getIntOrDefault("SERVER_WRITE_TIMEOUT", 15),
			Environment:  getEnvOrDefault("NODE_ENV", "development"),
			FrontendURL:  os.Getenv("FRONTEND_URL"),
		},
		Database: DatabaseConfig{
			Host:         getEnvOrDefault("MYSQL_HOST", "localhost"),
			Port:         getEnvOrDefault("MYSQL_PORT", "3306"),
			Username:     getEnvOrDefault("MYSQL_USERNAME", "chatr"),
			Password:     getEnvOrDefault("MYSQL_PASSWORD", "chatr123"),
			DatabaseName: getEnvOrDefault("MYSQL_DATABASE", "chatr"),
			MaxOpenConns: getIntOrDefault("MYSQL_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntOrDefault("MYSQL_MAX_IDLE_CONNS", 5),
		},
		MongoDB: MongoDBConfig{
			Host:     getEnvOrDefault("MONGO_HOST", "localhost"),
			Port:     getEnvOrDefault("MONGO_PORT", "27017"),
			Username: os.Getenv("MONGO_USERNAME"),
			Password: os.Getenv("MONGO_PASSWORD"),
			Database: getEnvOrDefault("MONGO_DATABASE", "chatr"),
			Bucket:   getEnvOrDefault("MONGO_BUCKET", "profile_photos"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnvOrDefault("JWT_SECRET", "your_jwt_secret_key"),
			TokenTTL:  getDurationOrDefault("JWT_TTL", time.Hour),
			Issuer:    "chatr",
		},
		Realtime: RealtimeConfig{
			WriteWait:      getDurationOrDefault("WS_WRITE_WAIT", 10*time.Second),
			PongWait:       pongWait,
			PingPeriod:     (pongWait * 9) / 10,
			MaxMessageSize: int64(getIntOrDefault("WS_MAX_MESSAGE_SIZE", 8192)),
			SendBuffer:     getIntOrDefault("WS_SEND_BUFFER", 256),
		},
		Logging: LoggingConfig{
			Level:      getEnvOrDefault("LOG_LEVEL", "info"),
			Format:     getEnvOrDefault("LOG_FORMAT", "text"),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
		},
	}

	cfg.Server.MediaBaseURL = getEnvOrDefault("MEDIA_BASE_URL",
		fmt.Sprintf("http://localhost:%s/uploads/", cfg.Server.Port))

	return cfg
}

// LoadClientConfig reads the client settings. Defaults mirror the web client:
// five reconnect attempts, one second initial delay, twenty second dial timeout.
func LoadClientConfig() *ClientConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &ClientConfig{
		ServerURL:         getEnvOrDefault("CHATR_SERVER_URL", "http://localhost:8080"),
		ReconnectAttempts: getIntOrDefault("CHATR_RECONNECT_ATTEMPTS", 5),
		ReconnectDelay:    getDurationOrDefault("CHATR_RECONNECT_DELAY", time.Second),
		MaxReconnectDelay: getDurationOrDefault("CHATR_MAX_RECONNECT_DELAY", 30*time.Second),
		DialTimeout:       getDurationOrDefault("CHATR_DIAL_TIMEOUT", 20*time.Second),
	}
}

func (cfg *Config) IsProduction() bool {
	return cfg.Server.Environment == "production"
}

func (cfg *Config) DSN() string {
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "3306"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DatabaseName,
	)
}

func (cfg *Config) GetMongoURI() string {
	if cfg.MongoDB.Username != "" && cfg.MongoDB.Password != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin",
			cfg.MongoDB.Username,
			cfg.MongoDB.Password,
			cfg.MongoDB.Host,
			cfg.MongoDB.Port,
			cfg.MongoDB.Database,
		)
	}
	return fmt.Sprintf("mongodb://%s:%s/%s", cfg.MongoDB.Host, cfg.MongoDB.Port, cfg.MongoDB.Database)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s: %q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

// accepts Go duration strings ("1500ms", "2s")
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Invalid duration for %s: %q, using %v", key, value, defaultValue)
	}
	return defaultValue
}
