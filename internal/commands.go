package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/starford/refgraph/internal/apperr"
	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/history"
	"github.com/starford/refgraph/internal/mcpserver"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Audit runs one audit, writes the report to the configured output and
// returns apperr.ErrAuditFailed when the verdict does not pass. Logs go to
// stderr so the report stays machine-readable.
func Audit(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := newLogger(os.Stderr, cfg.App.LogLevel, false)

	c, err := setup(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	res, err := c.svc.RunAudit(ctx)
	if err != nil {
		return err
	}

	switch app.format {
	case FormatJSON:
		err = audit.RenderJSON(app.out, res.Report, res.Verdict)
	case FormatText, "":
		err = audit.Render(app.out, res.Report, res.Verdict)
	default:
		return fmt.Errorf("unknown format %q: %w", app.format, apperr.ErrInvalidInput)
	}
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if !res.Verdict.Passed {
		return apperr.ErrAuditFailed
	}
	return nil
}

// ServeMCP serves the MCP tools over stdio. stdout carries the protocol, so
// logs go to stderr.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	logger := newLogger(os.Stderr, cfg.App.LogLevel, false)
	slog.SetDefault(logger)

	c, err := setup(cfg, logger)
	if err != nil {
		return err
	}
	defer c.close()

	if _, err := c.svc.RunAudit(ctx); err != nil {
		logger.Warn("initial audit failed", slog.String("error", err.Error()))
	}

	logger.Info("MCP server starting on stdio", slog.String("corpus_root", c.fs.Root()))
	return mcpserver.New(c.svc, cfg.Corpus.Component).ServeStdio()
}

// ListRuns writes the stored audit runs, newest first.
func ListRuns(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config
	if !cfg.History.Enabled {
		return apperr.ErrNoHistory
	}

	db, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("init history: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, app.limit)
	if err != nil {
		return err
	}
	if app.format == FormatJSON {
		enc := json.NewEncoder(app.out)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	return renderRuns(app.out, runs)
}

func renderRuns(w io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	re := lipgloss.NewRenderer(w)
	header := re.NewStyle().Bold(true).Padding(0, 1)
	cell := re.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(re.NewStyle().Faint(true)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("RUN", "STARTED", "RESULT", "DOCS", "EDGES", "DENSITY", "FINDINGS")
	for _, r := range runs {
		result := "pass"
		if !r.Passed {
			result = "fail"
		}
		t.Row(
			r.ID[:8],
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			result,
			strconv.Itoa(r.Documents),
			strconv.Itoa(r.Edges),
			strconv.FormatFloat(r.Density, 'f', 2, 64),
			strconv.Itoa(r.Errors),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
