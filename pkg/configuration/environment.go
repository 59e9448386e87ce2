package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/perfeval/pkg/logging"
)

const Production = "production"

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files, looking in the working directory first and
// falling back to the nearest parent directory holding a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	root := moduleRoot()
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
			continue
		}
		if root == "" || filepath.IsAbs(file) {
			continue
		}
		if candidate := filepath.Join(root, file); fs.FileExists(candidate) {
			existingFiles = append(existingFiles, candidate)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"perfeval"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type MongoOptions struct {
	URI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DATABASE" envDefault:"perfeval"`
}

type AuthzOptions struct {
	ModelPath      string `env:"AUTHZ_MODEL_PATH" envDefault:"config/access/model.conf"`
	PolicyPath     string `env:"AUTHZ_POLICY_PATH" envDefault:"config/access/policy.csv"`
	FlagConfigPath string `env:"AUTHZ_FLAG_CONFIG" envDefault:"config/access/authz_flags.yaml"`
	Mode           string `env:"AUTHZ_MODE" envDefault:"enforce"`
}

type Configuration struct {
	Database DatabaseOptions
	Mongo    MongoOptions
	Authz    AuthzOptions

	StoreBackend     string `env:"STORE_BACKEND" envDefault:"postgres"`
	MigrationsDir    string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	// Shared HS256 secret used to verify principal tokens handed to the CLI.
	JWTSecret string `env:"JWT_SECRET"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath, os.Stderr)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

func (c *Configuration) validate() error {
	backend := strings.ToLower(strings.TrimSpace(c.StoreBackend))
	switch backend {
	case StorePostgres, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("invalid STORE_BACKEND=%q (expected postgres|mongo|memory)", c.StoreBackend)
	}
	c.StoreBackend = backend

	mode := strings.ToLower(strings.TrimSpace(c.Authz.Mode))
	switch mode {
	case "disabled", "shadow", "enforce":
	default:
		return fmt.Errorf("invalid AUTHZ_MODE=%q (expected disabled|shadow|enforce)", c.Authz.Mode)
	}
	c.Authz.Mode = mode

	if c.GoAppEnvironment == Production && strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
