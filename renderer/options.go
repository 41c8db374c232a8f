// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package renderer

type Option func(r *Renderer) error

// WithColor turns on styled output for diagnostics.
func WithColor(flag bool) Option {
	return func(r *Renderer) error {
		r.color = flag
		return nil
	}
}

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(r *Renderer) error {
		switch format {
		case Text, JSON, YAML:
			r.format = format
			return nil
		}
		return ErrUnknownFormat
	}
}

// WithSourceName sets the name shown in token positions and diagnostics.
func WithSourceName(name string) Option {
	return func(r *Renderer) error {
		r.sourceName = name
		return nil
	}
}
