package tui

import (
	"github.com/Veraticus/dossier/internal/document"
	"github.com/Veraticus/dossier/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme      themes.Theme
	Template   *document.Template
	DateFormat string
	Width      int
	Height     int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:      themes.Default,
		DateFormat: document.DefaultDateFormat,
		Width:      80,
		Height:     24,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithTemplate sets the template used by the export key. Without one,
// export reports a template error.
func WithTemplate(tmpl *document.Template) Option {
	return func(c *Config) {
		c.Template = tmpl
	}
}

// WithDateFormat sets the layout for dates in the detail view.
func WithDateFormat(layout string) Option {
	return func(c *Config) {
		if layout != "" {
			c.DateFormat = layout
		}
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}
