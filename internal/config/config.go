package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mikhailv/fnstream/internal/util"
)

//go:embed config.default.yaml
var defaultConfigYAML []byte

type Config struct {
	HTTPAddr      string        `yaml:"http_addr"`
	Pprof         bool          `yaml:"pprof"`
	StatsInterval time.Duration `yaml:"stats_interval"`

	Log     Log      `yaml:"log"`
	WS      WS       `yaml:"ws"`
	Streams []Stream `yaml:"streams"`
}

type Log struct {
	File string `yaml:"file"`
}

type WS struct {
	WriteTimeout time.Duration `yaml:"write_timeout"`
	QueueSize    int           `yaml:"queue_size"`
}

type Stream struct {
	Name     string        `yaml:"name"`
	Kind     StreamKind    `yaml:"kind"`
	Interval time.Duration `yaml:"interval"`
	Min      float64       `yaml:"min"`
	Max      float64       `yaml:"max"`
	Values   []string      `yaml:"values"`
	Sources  []string      `yaml:"sources"`
}

func (c *Config) Validate() error {
	var errs []error
	var names util.Set[string]
	for i, st := range c.Streams {
		if st.Name == "" {
			errs = append(errs, fmt.Errorf("streams[%d]: name is required", i))
		} else if !names.Add(st.Name) {
			errs = append(errs, fmt.Errorf("streams[%d]: duplicate name %q", i, st.Name))
		}
		if err := st.validate(names); err != nil {
			errs = append(errs, fmt.Errorf("streams[%d] %q: %w", i, st.Name, err))
		}
	}
	if c.WS.QueueSize <= 0 {
		errs = append(errs, errors.New("ws.queue_size must be positive"))
	}
	return errors.Join(errs...)
}

func (s *Stream) validate(known util.Set[string]) error {
	switch {
	case s.Kind == "":
		return errors.New("kind is required")
	case s.Kind.Derived():
		if s.Kind == KindZip && len(s.Sources) != 2 {
			return errors.New("zip needs exactly 2 sources")
		}
		if s.Kind == KindMerge && len(s.Sources) < 2 {
			return errors.New("merge needs at least 2 sources")
		}
		for _, src := range s.Sources {
			if src == s.Name || !known.Has(src) {
				return fmt.Errorf("source %q must name a stream defined before it", src)
			}
		}
	case s.Interval <= 0:
		return errors.New("interval must be positive")
	case s.Kind == KindSequence && len(s.Values) == 0:
		return errors.New("sequence needs values")
	case s.Kind == KindRandom && s.Max < s.Min:
		return errors.New("max must not be less than min")
	}
	return nil
}

func DefaultConfig() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		panic(fmt.Errorf("failed to load default config: %w", err))
	}
	return &cfg
}

// LoadConfig reads file over the defaults. An empty file name yields the defaults.
func LoadConfig(file string) (*Config, error) {
	cfg := DefaultConfig()
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		if err = yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
