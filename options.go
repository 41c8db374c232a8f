// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package snippet

import (
	"fmt"
	"log/slog"
)

// EOFPolicy decides what happens when a word or number runs into the end
// of the input without meeting a terminal character.
type EOFPolicy int

const (
	// EOFTerminates treats the end of input as a terminal.
	EOFTerminates EOFPolicy = iota
	// EOFUnknown turns the trailing text into a single UNKNOWN token.
	EOFUnknown
	// EOFError fails the scan with a NoTerminalFound LexError.
	EOFError
)

func (p EOFPolicy) String() string {
	switch p {
	case EOFTerminates:
		return "terminate"
	case EOFUnknown:
		return "unknown"
	case EOFError:
		return "error"
	}
	return fmt.Sprintf("EOFPolicy(%d)", int(p))
}

// ParseEOFPolicy maps the names used in config files and flags
// ("terminate", "unknown", "error") to a policy.
func ParseEOFPolicy(name string) (EOFPolicy, error) {
	switch name {
	case "", "terminate":
		return EOFTerminates, nil
	case "unknown":
		return EOFUnknown, nil
	case "error":
		return EOFError, nil
	}
	return EOFTerminates, fmt.Errorf("eof policy %q: want terminate, unknown, or error", name)
}

// Config holds the settings shared by the lexer and the parser.
type Config struct {
	name      string
	logger    *slog.Logger
	eofPolicy EOFPolicy
}

type Option func(c *Config) error

func newConfig(options ...Option) (*Config, error) {
	c := &Config{}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// WithName sets the name of the input source used in logs and errors.
func WithName(name string) Option {
	return func(c *Config) error {
		c.name = name
		return nil
	}
}

// WithLogger sets the logger. A nil logger turns logging off.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

func WithEOFPolicy(policy EOFPolicy) Option {
	return func(c *Config) error {
		switch policy {
		case EOFTerminates, EOFUnknown, EOFError:
			c.eofPolicy = policy
			return nil
		}
		return fmt.Errorf("invalid eof policy %d", int(policy))
	}
}
