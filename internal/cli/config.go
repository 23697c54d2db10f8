package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when --config is not given.
const DefaultConfigFile = ".apigen.yaml"

// ProjectConfig is the content of .apigen.yaml. Every field is optional.
type ProjectConfig struct {
	LogLevel string         `yaml:"log_level"`
	LogFile  string         `yaml:"log_file"`
	Generate GenerateConfig `yaml:"generate"`
	OpenAPI  OpenAPIConfig  `yaml:"openapi"`
	Call     CallConfig     `yaml:"call"`
}

type GenerateConfig struct {
	Output string `yaml:"output"`
}

type OpenAPIConfig struct {
	Package   string `yaml:"package"`
	Interface string `yaml:"interface"`
	Client    string `yaml:"client"`
}

type CallConfig struct {
	BaseURL         string        `yaml:"base_url"`
	EnvFile         string        `yaml:"env_file"`
	Timeout         time.Duration `yaml:"timeout"`
	RequestIDHeader string        `yaml:"request_id_header"`
	Insecure        bool          `yaml:"insecure"`
}

// ReadConfig loads path. A missing file yields an empty config.
func ReadConfig(path string) (*ProjectConfig, error) {
	cfg := &ProjectConfig{}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
