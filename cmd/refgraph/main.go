package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/refgraph/internal"
	"github.com/starford/refgraph/internal/apperr"
	pkgconfig "github.com/starford/refgraph/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := os.Stat(configPath); err == nil || cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if root := cmd.String("root"); root != "" {
		cfg.Corpus.Root = root
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func auditOnce(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("no-history") {
		cfg.History.Enabled = false
	}
	return internal.Audit(ctx,
		internal.WithConfig(cfg),
		internal.WithFormat(cmd.String("format")),
	)
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg))
}

func listRuns(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	limit, err := strconv.Atoi(cmd.String("limit"))
	if err != nil {
		return fmt.Errorf("invalid --limit %q: %w", cmd.String("limit"), err)
	}
	return internal.ListRuns(ctx,
		internal.WithConfig(cfg),
		internal.WithFormat(cmd.String("format")),
		internal.WithLimit(limit),
	)
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text or json",
		Value:   internal.FormatText,
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "refgraph",
		Usage: "Audit the cross-reference graph of an MDX documentation tree",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Corpus root directory (overrides corpus.root)",
				Sources: cli.EnvVars("REFGRAPH_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "audit",
				Usage:  "Audit the corpus once and exit non-zero when the audit fails",
				Action: auditOnce,
				Flags: []cli.Flag{
					formatFlag(),
					&cli.BoolFlag{
						Name:  "no-history",
						Usage: "Do not record the run in the history database",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the REST API, SSE events and metrics, re-auditing on change",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "runs",
				Usage:  "List recorded audit runs",
				Action: listRuns,
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:  "limit",
						Usage: "Maximum number of runs",
						Value: "20",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, apperr.ErrAuditFailed) {
			os.Exit(1)
		}
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(2)
	}
}
