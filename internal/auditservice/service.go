// Package auditservice coordinates audits with run history, metrics and
// event publishing, and answers lookups against the latest report.
package auditservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/refgraph/internal/apperr"
	"github.com/starford/refgraph/internal/audit"
	"github.com/starford/refgraph/internal/history"
	"github.com/starford/refgraph/internal/linkgraph"
	"github.com/starford/refgraph/internal/sse"
)

// Publisher receives completed-audit notifications.
type Publisher interface {
	PublishAudit(e sse.AuditEvent)
}

// Observer records audit outcomes, e.g. as metrics.
type Observer interface {
	Observe(r *audit.Report, v audit.Verdict, took time.Duration)
}

// Result is one completed audit.
type Result struct {
	Report    *audit.Report `json:"report"`
	Verdict   audit.Verdict `json:"verdict"`
	Run       *history.Run  `json:"run,omitempty"`
	Stored    bool          `json:"stored"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// DocumentRefs describes one document's place in the latest graph.
type DocumentRefs struct {
	ID        string                      `json:"id"`
	Path      string                      `json:"path,omitempty"`
	Title     string                      `json:"title,omitempty"`
	Declaring bool                        `json:"declaring"`
	Orphan    bool                        `json:"orphan"`
	Outgoing  []linkgraph.Edge            `json:"outgoing"`
	Incoming  []linkgraph.Edge            `json:"incoming"`
	Errors    []linkgraph.StructuralError `json:"errors"`
}

// Service runs audits and keeps the latest result in memory.
type Service struct {
	auditor   *audit.Auditor
	policy    audit.Policy
	store     history.Store
	keep      int
	observer  Observer
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time

	runMu sync.Mutex // serializes audits
	mu    sync.RWMutex
	last  *Result
}

// Option configures a Service.
type Option func(*Service)

// WithHistory stores runs in store, keeping at most keep runs (0 keeps all).
func WithHistory(store history.Store, keep int) Option {
	return func(s *Service) {
		s.store = store
		s.keep = keep
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithPublisher sets the event publisher.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(auditor *audit.Auditor, policy audit.Policy, opts ...Option) *Service {
	s := &Service{
		auditor: auditor,
		policy:  policy,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the policy applied to every audit.
func (s *Service) Policy() audit.Policy { return s.policy }

// RunAudit loads the corpus, audits it, applies the policy and records the
// outcome. A run is stored only when the corpus fingerprint differs from the
// latest stored run.
func (s *Service) RunAudit(ctx context.Context) (*Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	started := s.now()
	report, err := s.auditor.Audit(ctx)
	if err != nil {
		return nil, err
	}
	verdict := s.policy.Evaluate(report)
	res := &Result{
		Report:    report,
		Verdict:   verdict,
		StartedAt: started,
		Duration:  s.now().Sub(started),
	}

	if s.observer != nil {
		s.observer.Observe(report, verdict, res.Duration)
	}

	if s.store != nil {
		if err := s.record(ctx, res); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	s.logger.Info("audit completed",
		slog.Int("documents", report.Metrics.TotalDocuments),
		slog.Int("edges", report.Metrics.EdgeCount),
		slog.Int("errors", len(report.Errors)),
		slog.Bool("passed", verdict.Passed),
		slog.Bool("stored", res.Stored),
		slog.Duration("took", res.Duration))

	if s.publisher != nil {
		ev := sse.AuditEvent{
			Fingerprint: report.Fingerprint,
			Passed:      verdict.Passed,
			Documents:   report.Metrics.TotalDocuments,
			Edges:       report.Metrics.EdgeCount,
			Errors:      len(report.Errors),
			Density:     report.Metrics.Density,
			Stored:      res.Stored,
		}
		if res.Run != nil {
			ev.RunID = res.Run.ID
		}
		s.publisher.PublishAudit(ev)
	}
	return res, nil
}

func (s *Service) record(ctx context.Context, res *Result) error {
	latest, err := s.store.LatestRun(ctx)
	switch {
	case err == nil && latest.Fingerprint == res.Report.Fingerprint:
		res.Run = latest
		return nil
	case err != nil && !errors.Is(err, apperr.ErrNotFound):
		s.logger.Warn("audit: latest run lookup failed", slog.String("error", err.Error()))
	}

	run, err := s.store.SaveRun(ctx, res.Report, res.Verdict, res.StartedAt)
	if err != nil {
		return fmt.Errorf("auditservice: save run: %w", err)
	}
	res.Run = run
	res.Stored = true

	if n, err := s.store.Prune(ctx, s.keep); err != nil {
		s.logger.Warn("audit: prune failed", slog.String("error", err.Error()))
	} else if n > 0 {
		s.logger.Debug("audit: pruned runs", slog.Int("count", n))
	}
	return nil
}

// Latest returns the most recent audit result.
func (s *Service) Latest() (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, apperr.ErrNoReport
	}
	return s.last, nil
}

// Graph returns the link graph of the latest audit.
func (s *Service) Graph() (linkgraph.Snapshot, error) {
	res, err := s.Latest()
	if err != nil {
		return linkgraph.Snapshot{}, err
	}
	return res.Report.Graph.Snapshot(), nil
}

// Orphans returns the orphan documents of the latest audit.
func (s *Service) Orphans() ([]string, error) {
	res, err := s.Latest()
	if err != nil {
		return nil, err
	}
	return res.Report.Metrics.Orphans, nil
}

// DocumentRefs returns the outgoing and incoming references and the
// findings of one document in the latest audit.
func (s *Service) DocumentRefs(id string) (*DocumentRefs, error) {
	res, err := s.Latest()
	if err != nil {
		return nil, err
	}
	r := res.Report

	doc, inCorpus := r.Document(id)
	node, inGraph := r.Graph.Node(id)
	if !inCorpus && !inGraph {
		return nil, fmt.Errorf("auditservice: document %s: %w", id, apperr.ErrNotFound)
	}

	out := &DocumentRefs{
		ID:        id,
		Path:      doc.Path,
		Title:     doc.Title,
		Declaring: node.Declaring,
		Outgoing:  []linkgraph.Edge{},
		Incoming:  []linkgraph.Edge{},
		Errors:    r.ErrorsFor(id),
	}
	if out.Errors == nil {
		out.Errors = []linkgraph.StructuralError{}
	}
	for _, e := range r.Graph.Edges() {
		if e.Source == id {
			out.Outgoing = append(out.Outgoing, e)
		}
		if e.Target == id {
			out.Incoming = append(out.Incoming, e)
		}
	}
	out.Orphan = node.Declaring && len(out.Incoming) == 0
	return out, nil
}

func (s *Service) history() (history.Store, error) {
	if s.store == nil {
		return nil, apperr.ErrNoHistory
	}
	return s.store, nil
}

// ListRuns returns up to limit stored runs, newest first.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]history.Run, error) {
	st, err := s.history()
	if err != nil {
		return nil, err
	}
	return st.ListRuns(ctx, limit)
}

// GetRun returns one stored run.
func (s *Service) GetRun(ctx context.Context, id string) (*history.Run, error) {
	st, err := s.history()
	if err != nil {
		return nil, err
	}
	return st.GetRun(ctx, id)
}

// RunFindings returns the findings of one stored run.
func (s *Service) RunFindings(ctx context.Context, id string) ([]linkgraph.StructuralError, error) {
	st, err := s.history()
	if err != nil {
		return nil, err
	}
	return st.Findings(ctx, id)
}

// Diff compares the findings of two stored runs.
func (s *Service) Diff(ctx context.Context, fromID, toID string) (*history.Diff, error) {
	st, err := s.history()
	if err != nil {
		return nil, err
	}
	return st.Diff(ctx, fromID, toID)
}

// SearchFindings searches stored findings.
func (s *Service) SearchFindings(ctx context.Context, query string, limit int) ([]history.FindingHit, error) {
	st, err := s.history()
	if err != nil {
		return nil, err
	}
	return st.SearchFindings(ctx, query, limit)
}
