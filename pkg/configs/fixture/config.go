package fixture

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is time.Duration readable from yaml, like "250ms" or "3s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var expr string
	if err := node.Decode(&expr); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(expr)
	if err != nil {
		return fmt.Errorf("not a duration: %q: %w", expr, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

type LatencyConfig struct {
	Min Duration `yaml:"min"`
	Max Duration `yaml:"max"`
}

type Config struct {
	ServerPort     string        `yaml:"port"`
	DBPath         string        `yaml:"dbPath"`
	SeedPath       string        `yaml:"seedPath"`
	BackendApiRoot string        `yaml:"backendApiRoot"`
	TokenSecret    string        `yaml:"tokenSecret"`
	Tick           Duration      `yaml:"tick"`
	ShrinkInterval Duration      `yaml:"shrinkInterval"`
	Latency        LatencyConfig `yaml:"latency"`
}

// LoadConfig loads a server config from a file.
//
// args:
//   - filepath: filepath refers a config file.
//
// returns *Config, error:
//
//	When loading success, returns `(*Config, nil)`.
//	Otherwise, returns `(nil, error)`.
func LoadConfig(filepath string) (*Config, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (*Config, error) {
	out := Config{
		ServerPort:     "8080",
		DBPath:         ":memory:",
		TokenSecret:    "fixture-dev-secret",
		Tick:           Duration(1 * time.Second),
		ShrinkInterval: Duration(5 * time.Minute),
		Latency: LatencyConfig{
			Min: Duration(100 * time.Millisecond),
			Max: Duration(400 * time.Millisecond),
		},
	}
	if err := yaml.Unmarshal(conf, &out); err != nil {
		return nil, err
	}
	if out.Latency.Max < out.Latency.Min {
		return nil, fmt.Errorf(
			"latency.max (%v) is less than latency.min (%v)",
			time.Duration(out.Latency.Max), time.Duration(out.Latency.Min),
		)
	}
	return &out, nil
}
