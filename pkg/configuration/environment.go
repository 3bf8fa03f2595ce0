package configuration

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/dirsync/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"dirsync"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type DirectoryOptions struct {
	BaseURL       string        `env:"DIRECTORY_BASE_URL" envDefault:"http://localhost:8088"`
	Authorization string        `env:"DIRECTORY_AUTHORIZATION"`
	Timeout       time.Duration `env:"DIRECTORY_TIMEOUT" envDefault:"30s"`
}

func (d *DirectoryOptions) Validate() error {
	u, err := url.Parse(d.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid DIRECTORY_BASE_URL: %q", d.BaseURL)
	}
	if d.Timeout <= 0 {
		return fmt.Errorf("DIRECTORY_TIMEOUT must be positive, got %s", d.Timeout)
	}
	return nil
}

type SyncOptions struct {
	Owner          string        `env:"SYNC_OWNER" envDefault:"default"`
	Workers        int           `env:"SYNC_WORKERS" envDefault:"8"`
	UserPageSize   int           `env:"SYNC_USER_PAGE_SIZE" envDefault:"500"`
	CheckpointPath string        `env:"SYNC_CHECKPOINT_PATH" envDefault:"dirsync-checkpoint.json"`
	LockPath       string        `env:"SYNC_LOCK_PATH" envDefault:"dirsync.lock"`
	SettleAttempts int           `env:"SYNC_SETTLE_ATTEMPTS" envDefault:"5"`
	SettleDelay    time.Duration `env:"SYNC_SETTLE_DELAY" envDefault:"2s"`
}

func (s *SyncOptions) Validate() error {
	if strings.TrimSpace(s.Owner) == "" {
		return fmt.Errorf("SYNC_OWNER must not be empty")
	}
	if s.Workers < 1 {
		return fmt.Errorf("SYNC_WORKERS must be at least 1, got %d", s.Workers)
	}
	if s.Workers > 128 {
		return fmt.Errorf("SYNC_WORKERS too high, maximum is 128, got %d", s.Workers)
	}
	if s.UserPageSize < 1 {
		return fmt.Errorf("SYNC_USER_PAGE_SIZE must be at least 1, got %d", s.UserPageSize)
	}
	if s.SettleAttempts < 0 {
		return fmt.Errorf("SYNC_SETTLE_ATTEMPTS must be non-negative, got %d", s.SettleAttempts)
	}
	return nil
}

type Configuration struct {
	Database  DatabaseOptions
	Directory DirectoryOptions
	Sync      SyncOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/dirsync.log"`
	// The client sends this header with a random uuidv4 on every directory API call.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`

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
		return logrus.InfoLevel
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

	if err := c.Directory.Validate(); err != nil {
		return fmt.Errorf("directory configuration error: %w", err)
	}
	if err := c.Sync.Validate(); err != nil {
		return fmt.Errorf("sync configuration error: %w", err)
	}

	if c.LogPath == "" {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	} else {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
		if err != nil {
			return err
		}
		c.logFile = f
		c.logger = logger
	}

	c.Database.Opts = c.Database.ConnectionString()
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
