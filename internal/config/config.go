package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type HTTP struct {
	Listen          string        `yaml:"listen"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type Docker struct {
	// Host overrides DOCKER_HOST when set.
	Host        string        `yaml:"host"`
	NamePrefix  string        `yaml:"namePrefix"`
	StopTimeout time.Duration `yaml:"stopTimeout"`
	LogTail     int           `yaml:"logTail"`
}

type Data struct {
	Root string `yaml:"root"`
}

type Backup struct {
	Root          string `yaml:"root"`
	RetentionDays int    `yaml:"retentionDays"`
	MaxCount      int    `yaml:"maxCount"`
}

type Scheduler struct {
	Tick        time.Duration `yaml:"tick"`
	Timezone    string        `yaml:"timezone"`
	TaskTimeout time.Duration `yaml:"taskTimeout"`
}

type Stats struct {
	Interval time.Duration `yaml:"interval"`
}

type Console struct {
	Timeout time.Duration `yaml:"timeout"`
}

type Store struct {
	Path string `yaml:"path"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	Docker    Docker    `yaml:"docker"`
	Data      Data      `yaml:"data"`
	Backup    Backup    `yaml:"backup"`
	Scheduler Scheduler `yaml:"scheduler"`
	Stats     Stats     `yaml:"stats"`
	Console   Console   `yaml:"console"`
	Store     Store     `yaml:"store"`
	Log       Log       `yaml:"log"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Listen:          "127.0.0.1:8090",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0,
			ShutdownTimeout: 15 * time.Second,
		},
		Docker: Docker{
			NamePrefix:  "spark_mc_",
			StopTimeout: 30 * time.Second,
			LogTail:     100,
		},
		Data:      Data{Root: "/var/lib/sparkd/servers"},
		Backup:    Backup{Root: "/var/lib/sparkd/backups", RetentionDays: 14, MaxCount: 10},
		Scheduler: Scheduler{Tick: 15 * time.Second, TaskTimeout: 10 * time.Minute},
		Stats:     Stats{Interval: 15 * time.Second},
		Console:   Console{Timeout: 5 * time.Second},
		Store:     Store{Path: "/var/lib/sparkd/sparkd.db"},
		Log:       Log{Level: "info"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path and
// SPARKD_* environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the agent cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.HTTP.Listen == "" {
		errs = append(errs, errors.New("http.listen is required"))
	}
	if c.Data.Root == "" {
		errs = append(errs, errors.New("data.root is required"))
	}
	if c.Backup.Root == "" {
		errs = append(errs, errors.New("backup.root is required"))
	}
	if c.Data.Root != "" && c.Backup.Root != "" && within(c.Backup.Root, c.Data.Root) {
		errs = append(errs, errors.New("backup.root must not be inside data.root"))
	}
	if c.Backup.RetentionDays < 0 || c.Backup.MaxCount < 0 {
		errs = append(errs, errors.New("backup retention must not be negative"))
	}
	if c.Scheduler.Tick <= 0 {
		errs = append(errs, errors.New("scheduler.tick must be positive"))
	}
	if c.Stats.Interval <= 0 {
		errs = append(errs, errors.New("stats.interval must be positive"))
	}
	if c.Console.Timeout <= 0 {
		errs = append(errs, errors.New("console.timeout must be positive"))
	}
	if c.Docker.StopTimeout <= 0 {
		errs = append(errs, errors.New("docker.stopTimeout must be positive"))
	}
	if c.Store.Path == "" {
		errs = append(errs, errors.New("store.path is required"))
	}
	return errors.Join(errs...)
}

func within(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func applyEnv(c *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("SPARKD_HTTP_LISTEN", &c.HTTP.Listen)
	dur("SPARKD_HTTP_READ_TIMEOUT", &c.HTTP.ReadTimeout)
	dur("SPARKD_HTTP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)
	str("SPARKD_DOCKER_HOST", &c.Docker.Host)
	str("SPARKD_NAME_PREFIX", &c.Docker.NamePrefix)
	dur("SPARKD_STOP_TIMEOUT", &c.Docker.StopTimeout)
	num("SPARKD_LOG_TAIL", &c.Docker.LogTail)
	str("SPARKD_DATA_ROOT", &c.Data.Root)
	str("SPARKD_BACKUP_ROOT", &c.Backup.Root)
	num("SPARKD_BACKUP_RETENTION_DAYS", &c.Backup.RetentionDays)
	num("SPARKD_BACKUP_MAX_COUNT", &c.Backup.MaxCount)
	dur("SPARKD_SCHEDULER_TICK", &c.Scheduler.Tick)
	str("SPARKD_SCHEDULER_TIMEZONE", &c.Scheduler.Timezone)
	dur("SPARKD_STATS_INTERVAL", &c.Stats.Interval)
	dur("SPARKD_CONSOLE_TIMEOUT", &c.Console.Timeout)
	str("SPARKD_STORE_PATH", &c.Store.Path)
	str("SPARKD_LOG_LEVEL", &c.Log.Level)
	flag("SPARKD_LOG_JSON", &c.Log.JSON)

	return errors.Join(errs...)
}
