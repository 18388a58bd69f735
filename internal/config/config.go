package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/log/level"
	"gopkg.in/yaml.v3"

	"hashring/internal/ring"
)

// Member is a node listed in the configuration.
type Member struct {
	ID   string `yaml:"id"`
	Addr string `yaml:"addr"`
}

// Config holds the ring daemon configuration.
type Config struct {
	ConfigFile  string   `yaml:"-"`
	ListenAddr  string   `yaml:"listen_addr"`
	MetricsAddr string   `yaml:"metrics_addr"`
	LogLevel    string   `yaml:"log_level"`
	Members     []Member `yaml:"members"`
}

// RegisterFlags registers the configuration flags on f with their defaults.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.ConfigFile, "config.file", "", "YAML configuration file. Flags given on the command line take precedence.")
	f.StringVar(&c.ListenAddr, "listen-addr", "127.0.0.1:7946", "Address the gRPC ring service listens on.")
	f.StringVar(&c.MetricsAddr, "metrics-addr", "", "Address the Prometheus metrics endpoint listens on. Empty disables it.")
	f.StringVar(&c.LogLevel, "log.level", "info", "Only log messages with the given severity or above. Valid levels: [debug, info, warn, error]")
	f.Func("members", "Initial ring members in the format id1=addr1,id2=addr2.", func(s string) error {
		members, err := ParseMembers(s)
		if err != nil {
			return err
		}
		c.Members = members
		return nil
	})
}

// Load parses args into f, which must have c's flags registered. When a
// config file is named, it is applied over the flag defaults and the
// explicitly given flags are applied again on top of it.
func (c *Config) Load(f *flag.FlagSet, args []string) error {
	if err := f.Parse(args); err != nil {
		return err
	}
	if c.ConfigFile == "" {
		return nil
	}
	if err := c.LoadFile(c.ConfigFile); err != nil {
		return err
	}
	return f.Parse(args)
}

// LoadFile reads YAML configuration from path into c. Fields missing from
// the file keep their current values; unknown fields are an error.
func (c *Config) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address cannot be empty")
	}
	if _, err := level.Parse(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	seen := make(map[string]bool, len(c.Members))
	for _, m := range c.Members {
		if m.ID == "" || m.Addr == "" {
			return fmt.Errorf("member ID and address cannot be empty: %s=%s", m.ID, m.Addr)
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate member ID: %s", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

// ParseMembers parses a comma-separated list of members in the format:
// "id1=addr1,id2=addr2,id3=addr3"
func ParseMembers(s string) ([]Member, error) {
	if s == "" {
		return []Member{}, nil
	}

	parts := strings.Split(s, ",")
	members := make([]Member, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, addr, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid member format: %s (expected id=addr)", part)
		}

		id = strings.TrimSpace(id)
		addr = strings.TrimSpace(addr)

		if id == "" || addr == "" {
			return nil, fmt.Errorf("member ID and address cannot be empty: %s", part)
		}

		members = append(members, Member{ID: id, Addr: addr})
	}

	return members, nil
}

// BuildRingNodes converts the configured members into ring nodes.
func (c *Config) BuildRingNodes() []ring.Node {
	nodes := make([]ring.Node, 0, len(c.Members))
	for _, m := range c.Members {
		nodes = append(nodes, ring.Node{ID: m.ID, Addr: m.Addr})
	}
	return nodes
}
