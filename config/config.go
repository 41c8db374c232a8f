// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package config loads the settings file for the snippet command.
//
// The file is TOML by default. Files ending in .yaml or .yml are read as
// YAML with the same keys. Unknown keys are an error in both formats.
package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mdhender/snippet"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Config is the contents of a settings file.
type Config struct {
	Lexer  LexerConfig  `toml:"lexer"  yaml:"lexer"`
	Output OutputConfig `toml:"output" yaml:"output"`
	Index  IndexConfig  `toml:"index"  yaml:"index"`
}

type LexerConfig struct {
	// EOF is the end of input policy: terminate, unknown, or error.
	EOF string `toml:"eof" yaml:"eof"`
}

type OutputConfig struct {
	Format string `toml:"format" yaml:"format"` // text, json, or yaml
	Color  bool   `toml:"color"  yaml:"color"`
}

type IndexConfig struct {
	Database string `toml:"database" yaml:"database"` // path to the SQLite file
}

// Default returns the settings used when there is no file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates the settings file at path.
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// an empty file decodes to io.EOF, which just means "all defaults"
		if err := dec.Decode(&cfg); err != nil && len(bytes.TrimSpace(data)) != 0 {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	default:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) != 0 {
			var keys []string
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("config: %s: unknown keys %s", path, strings.Join(keys, ", "))
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// EOFPolicy returns the lexer's end of input policy.
func (c *Config) EOFPolicy() snippet.EOFPolicy {
	// validate has already rejected bad names
	policy, _ := snippet.ParseEOFPolicy(c.Lexer.EOF)
	return policy
}

func (c *Config) applyDefaults() {
	if c.Lexer.EOF == "" {
		c.Lexer.EOF = snippet.EOFTerminates.String()
	}
	if c.Output.Format == "" {
		c.Output.Format = "text"
	}
}

func (c *Config) validate() error {
	if _, err := snippet.ParseEOFPolicy(c.Lexer.EOF); err != nil {
		return fmt.Errorf("lexer: %w", err)
	}
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("output: format %q: want text, json, or yaml", c.Output.Format)
	}
	return nil
}
