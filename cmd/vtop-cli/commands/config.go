package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	devenv "vtop-timetable/dev/env"
	"vtop-timetable/internal/components/telemetry"
	"vtop-timetable/internal/scrapers/vtop"
	"vtop-timetable/pkg/configutil"

	"dario.cat/mergo"
)

type Config struct {
	BaseUrl           string           `json:"base_url"`
	Username          string           `json:"username"`
	Password          string           `json:"password"`
	Semester          string           `json:"semester"`
	ModelPath         string           `json:"model_path"`
	Db                string           `json:"db"`
	DbAuthToken       string           `json:"db_auth_token"`
	TimeoutSeconds    int              `json:"timeout_seconds"`
	RequestsPerSecond float64          `json:"requests_per_second"`
	CloudflareBypass  bool             `json:"cloudflare_bypass"`
	CaptchaAttempts   int              `json:"captcha_attempts"`
	Telemetry         telemetry.Config `json:"telemetry"`
}

var defaultConfig = Config{
	BaseUrl:           vtop.DefaultBaseUrl,
	TimeoutSeconds:    30,
	RequestsPerSecond: 2,
	CaptchaAttempts:   3,
}

// loadConfig reads `path` (plus its .local override). A relative path is
// looked up from `workdir` and then each parent directory. A missing file
// leaves every field at its default.
func loadConfig(workdir, path string) (Config, error) {
	var cfg Config
	var err error
	if filepath.IsAbs(path) {
		cfg, err = configutil.ReadConfig[Config](path)
	} else {
		var found string
		cfg, found, err = configutil.ReadRecursively[Config](workdir, path)
		if err == nil {
			slog.Debug("using config", "path", found)
		}
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	err = mergo.Merge(&cfg, defaultConfig)
	if err != nil {
		return Config{}, err
	}

	if cfg.ModelPath != "" {
		cfg.ModelPath, err = devenv.ResolvePath(cfg.ModelPath)
		if err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

func (c Config) clientOptions(output telemetry.MessageOutput) vtop.ClientOptions {
	return vtop.ClientOptions{
		BaseUrl:           c.BaseUrl,
		Timeout:           time.Duration(c.TimeoutSeconds) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		CloudflareBypass:  c.CloudflareBypass,
		Output:            output,
	}
}
