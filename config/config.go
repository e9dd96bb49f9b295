package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type App struct {
	Name      string `yaml:"name" mapstructure:"name"`
	LogLevel  string `yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // text|json
}

// Engine describes the model sidecar.
type Engine struct {
	URL      string        `yaml:"url" mapstructure:"url"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Device   string        `yaml:"device" mapstructure:"device"` // auto|cpu|cuda
	Language string        `yaml:"language" mapstructure:"language"`
}

type Diarization struct {
	Token string `yaml:"token" mapstructure:"token"`
}

type Pipeline struct {
	ModelSize string `yaml:"model_size" mapstructure:"model_size"`
	Threads   int    `yaml:"threads" mapstructure:"threads"`
}

type Output struct {
	Dir          string `yaml:"dir" mapstructure:"dir"`
	SegmentsJSON bool   `yaml:"segments_json" mapstructure:"segments_json"`
}

type Server struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	MaxUploadMB  int64         `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	JobRetention time.Duration `yaml:"job_retention" mapstructure:"job_retention"`
}

type Root struct {
	App         App         `yaml:"app" mapstructure:"app"`
	Engine      Engine      `yaml:"engine" mapstructure:"engine"`
	Diarization Diarization `yaml:"diarization" mapstructure:"diarization"`
	Pipeline    Pipeline    `yaml:"pipeline" mapstructure:"pipeline"`
	Output      Output      `yaml:"output" mapstructure:"output"`
	Server      Server      `yaml:"server" mapstructure:"server"`
}

// Options points Load at explicit files; empty fields fall back to the
// default search paths.
type Options struct {
	ConfigFile string
	EnvFile    string
}

const envPrefix = "SCRIBE"

// ModelSizes are the transcription models the sidecar can load.
var ModelSizes = []string{"tiny", "base", "small", "medium", "large-v3"}

// Load builds the configuration once: .env file, defaults, config file,
// then environment variables.
func Load(opts Options) (*Root, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// first non-empty wins
	if err := v.BindEnv("diarization.token", "HF_TOKEN", "HUGGINGFACE_TOKEN"); err != nil {
		return nil, err
	}

	if path := configPath(opts.ConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Diarization.Token = strings.TrimSpace(cfg.Diarization.Token)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "scribe")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	v.SetDefault("engine.url", "http://localhost:8388")
	v.SetDefault("engine.timeout", 2*time.Hour)
	v.SetDefault("engine.device", "auto")
	v.SetDefault("engine.language", "en")

	v.SetDefault("diarization.token", "")

	v.SetDefault("pipeline.model_size", "medium")
	v.SetDefault("pipeline.threads", 16)

	v.SetDefault("output.dir", "")
	v.SetDefault("output.segments_json", false)

	v.SetDefault("server.addr", ":7860")
	v.SetDefault("server.max_upload_mb", 2048)
	v.SetDefault("server.job_retention", time.Hour)
}

// configPath returns the explicit path, or the first existing file of
// config/<CONFIG_ENV>/config.yaml and config.yaml.
func configPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	guess := []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	}
	for _, p := range guess {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

func (c *Root) Validate() error {
	var errs []error
	switch c.Engine.Device {
	case "auto", "cpu", "cuda":
	default:
		errs = append(errs, fmt.Errorf("engine.device must be auto, cpu or cuda, got %q", c.Engine.Device))
	}
	if !lo.Contains(ModelSizes, c.Pipeline.ModelSize) {
		errs = append(errs, fmt.Errorf("pipeline.model_size must be one of %s, got %q",
			strings.Join(ModelSizes, ", "), c.Pipeline.ModelSize))
	}
	if c.Engine.URL == "" {
		errs = append(errs, errors.New("engine.url is required"))
	}
	if c.Pipeline.Threads < 1 {
		errs = append(errs, fmt.Errorf("pipeline.threads must be positive, got %d", c.Pipeline.Threads))
	}
	if c.Server.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB))
	}
	return errors.Join(errs...)
}

// HasToken reports whether a diarization credential came from the environment.
func (c *Root) HasToken() bool { return c.Diarization.Token != "" }

// YAML renders the effective configuration with the credential redacted.
func (c *Root) YAML() (string, error) {
	cp := *c
	if cp.Diarization.Token != "" {
		cp.Diarization.Token = "********"
	}
	b, err := yaml.Marshal(&cp)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
