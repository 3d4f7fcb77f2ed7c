package cmd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml accepts "30s"-style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

type SSHConfig struct {
	User    string   `yaml:"user"`
	KeyFile string   `yaml:"key_file"`
	Timeout Duration `yaml:"timeout"`
}

type NemesisConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
	Hold     Duration `yaml:"hold"`
	StartCmd string   `yaml:"start_cmd"`
}

type Config struct {
	Nodes      []string      `yaml:"nodes"`
	SSH        SSHConfig     `yaml:"ssh"`
	Workers    int           `yaml:"workers"`
	Ops        int           `yaml:"ops"`
	Keys       int           `yaml:"keys"`
	MaxValue   int           `yaml:"max_value"`
	Seed       int64         `yaml:"seed"`
	History    string        `yaml:"history"`
	StatusAddr string        `yaml:"status_addr"`
	Nemesis    NemesisConfig `yaml:"nemesis"`
}

// LoadConfig reads the yaml config and applies defaults. Nodes is the only
// required field.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		Workers:  5,
		Ops:      500,
		Keys:     5,
		MaxValue: 100,
		Seed:     time.Now().UnixNano(),
		History:  "history.csv",
		SSH:      SSHConfig{Timeout: Duration(30 * time.Second)},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("config: no nodes configured")
	}
	return cfg, nil
}
