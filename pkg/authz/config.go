package authz

import (
	"embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/perfeval/pkg/configuration"
)

//go:embed defaults/model.conf defaults/policy.csv
var defaultFiles embed.FS

// Config captures all inputs necessary to initialize the Casbin enforcer.
// Leaving both ModelPath and PolicyPath empty selects the embedded defaults.
type Config struct {
	ModelPath    string
	PolicyPath   string
	FlagPath     string
	FlagMode     Mode
	Logger       *logrus.Logger
	FlagProvider FlagProvider
}

func (c Config) validate() error {
	if c.ModelPath == "" && c.PolicyPath != "" {
		return configError("missing model path")
	}
	if c.PolicyPath == "" && c.ModelPath != "" {
		return configError("missing policy path")
	}
	return nil
}

func (c Config) normalized() Config {
	if c.ModelPath != "" {
		c.ModelPath = filepath.Clean(c.ModelPath)
	}
	if c.PolicyPath != "" {
		c.PolicyPath = filepath.Clean(c.PolicyPath)
	}
	if c.FlagPath != "" {
		c.FlagPath = filepath.Clean(c.FlagPath)
	}
	c.FlagMode = sanitizeMode(c.FlagMode)
	return c
}

func (c Config) usesEmbeddedDefaults() bool {
	return c.ModelPath == "" && c.PolicyPath == ""
}

func embeddedModelAndPolicy() (string, string, error) {
	modelText, err := defaultFiles.ReadFile("defaults/model.conf")
	if err != nil {
		return "", "", err
	}
	policyText, err := defaultFiles.ReadFile("defaults/policy.csv")
	if err != nil {
		return "", "", err
	}
	return string(modelText), string(policyText), nil
}

// DefaultConfig builds a Config using the global configuration singleton.
// Model and policy files that do not exist on disk fall back to the embedded defaults.
func DefaultConfig() Config {
	cfg := configuration.Use()
	mode := sanitizeMode(Mode(cfg.Authz.Mode))
	if envMode := strings.TrimSpace(os.Getenv("AUTHZ_MODE")); envMode != "" {
		mode = sanitizeMode(Mode(envMode))
	}

	out := Config{
		FlagPath: cfg.Authz.FlagConfigPath,
		FlagMode: mode,
		Logger:   cfg.Logger(),
	}
	if fileExists(cfg.Authz.ModelPath) && fileExists(cfg.Authz.PolicyPath) {
		out.ModelPath = cfg.Authz.ModelPath
		out.PolicyPath = cfg.Authz.PolicyPath
	}
	return out
}

func fileExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
