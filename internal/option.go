package internal

import (
	"io"
	"os"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	out    io.Writer
	format string
	limit  int
}

func newApplication(opts []Option) *application {
	app := &application{out: os.Stdout, format: FormatText}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOutput sets where command output (reports, run listings) is written.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithFormat selects the report format, FormatText or FormatJSON.
func WithFormat(format string) Option {
	return func(a *application) {
		a.format = format
	}
}

// WithLimit caps the number of runs listed.
func WithLimit(n int) Option {
	return func(a *application) {
		a.limit = n
	}
}
