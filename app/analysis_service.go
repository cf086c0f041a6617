package app

import (
	"context"
	"encoding/csv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gocompare/adapters/table"
	"gocompare/domain/comparison"
	"gocompare/domain/core"
	"gocompare/internal/cleaning"
	"gocompare/internal/errors"
	"gocompare/internal/logging"
	"gocompare/internal/metrics"
	"gocompare/internal/report"
	"gocompare/internal/selection"
	"gocompare/ports"
)

// AnalysisRequest is one invocation of the engine.
type AnalysisRequest struct {
	// Data is raw delimited text with a header line.
	Data        string   `json:"data"`
	GroupColumn string   `json:"group_column"`
	Metrics     []string `json:"metrics"`
	// Replicate repeats every row this many times; values below 1 mean 1.
	// Replication inflates the sample size without adding information.
	Replicate int      `json:"replicate"`
	AllowList []string `json:"allow_list,omitempty"`
}

// RunResult is a finished analysis together with its run metadata.
type RunResult struct {
	RunID     core.RunID         `json:"run_id"`
	Report    *comparison.Report `json:"-"`
	Result    string             `json:"result"`
	RowCount  int                `json:"row_count"`
	Duration  time.Duration      `json:"-"`
	Persisted bool               `json:"persisted"`
}

// ServiceConfig wires an AnalysisService.
type ServiceConfig struct {
	Procedures ports.ProcedureSuite
	// Workers bounds how many metrics are evaluated at once.
	Workers int
	// MaxRows caps the prepared table size after replication.
	MaxRows int
	// Runs is optional; without it runs are not stored.
	Runs    ports.RunRepository
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// AnalysisService runs the Loader → Cleaner → Assessor → Selector →
// Assembler pipeline once per metric.
type AnalysisService struct {
	loader    *table.Loader
	assessor  *selection.Assessor
	selector  *selection.Selector
	assembler *report.Assembler
	workers   int
	maxRows   int
	runs      ports.RunRepository
	metrics   *metrics.Collector
	logger    *zap.Logger
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(cfg ServiceConfig) *AnalysisService {
	logger := logging.OrNop(cfg.Logger)
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &AnalysisService{
		loader:    table.NewLoader(logger.Named("loader")),
		assessor:  selection.NewAssessor(cfg.Procedures.Normality),
		selector:  selection.NewSelector(cfg.Procedures, logger.Named("selector")),
		assembler: report.NewAssembler(),
		workers:   workers,
		maxRows:   cfg.MaxRows,
		runs:      cfg.Runs,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Loader returns the table loader used by the service.
func (s *AnalysisService) Loader() *table.Loader {
	return s.loader
}

// Analyze parses and prepares the raw text, then evaluates every requested
// metric. Input-level failures are returned as errors; per-metric failures
// are recorded in the report.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (*comparison.Report, error) {
	tbl, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, tbl, req)
}

// AnalyzeTable evaluates an already parsed table. Filtering, replication and
// decimal rewriting are still applied.
func (s *AnalysisService) AnalyzeTable(ctx context.Context, tbl *comparison.Table, req AnalysisRequest) (*comparison.Report, error) {
	if err := checkGroupColumn(req.GroupColumn); err != nil {
		return nil, err
	}
	prepared, err := s.loader.Prepare(tbl, s.options(req))
	if err != nil {
		return nil, err
	}
	return s.evaluate(ctx, prepared, req)
}

// AnalyzeJSON returns the structured-text result of Analyze.
func (s *AnalysisService) AnalyzeJSON(ctx context.Context, req AnalysisRequest) (string, error) {
	rep, err := s.Analyze(ctx, req)
	if err != nil {
		return "", err
	}
	out, err := report.EncodeJSON(rep)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Run analyses raw text and stores the run when history is configured.
func (s *AnalysisService) Run(ctx context.Context, req AnalysisRequest) (*RunResult, error) {
	return s.execute(ctx, req, req.Data, func() (*comparison.Table, error) {
		return s.prepare(req)
	})
}

// RunTable is Run for a table that was not read from delimited text.
func (s *AnalysisService) RunTable(ctx context.Context, tbl *comparison.Table, req AnalysisRequest) (*RunResult, error) {
	return s.execute(ctx, req, canonicalText(tbl), func() (*comparison.Table, error) {
		if err := checkGroupColumn(req.GroupColumn); err != nil {
			return nil, err
		}
		return s.loader.Prepare(tbl, s.options(req))
	})
}

// Inspect describes raw text without analysing it.
func (s *AnalysisService) Inspect(raw, groupColumn string) (*table.Inspection, error) {
	ins, err := s.loader.Inspect(raw, groupColumn)
	if err != nil {
		return nil, errors.FromDomain(err)
	}
	return ins, nil
}

// GetRun returns a stored run.
func (s *AnalysisService) GetRun(ctx context.Context, id core.RunID) (*ports.AnalysisRun, error) {
	if s.runs == nil {
		return nil, errors.FromDomain(core.NewNotFoundError("run", id.String()))
	}
	run, err := s.runs.GetByID(ctx, id)
	if err != nil {
		if core.IsNotFoundError(err) {
			return nil, errors.FromDomain(err)
		}
		return nil, errors.DatabaseError("failed to load run", err)
	}
	return run, nil
}

// ListRuns returns stored runs, newest first. Without history it is empty.
func (s *AnalysisService) ListRuns(ctx context.Context, limit, offset int) ([]*ports.AnalysisRun, error) {
	if s.runs == nil {
		return []*ports.AnalysisRun{}, nil
	}
	runs, err := s.runs.List(ctx, limit, offset)
	if err != nil {
		return nil, errors.DatabaseError("failed to list runs", err)
	}
	return runs, nil
}

// FindRuns returns the stored runs whose input hash matches, newest first.
func (s *AnalysisService) FindRuns(ctx context.Context, hash core.Hash) ([]*ports.AnalysisRun, error) {
	if s.runs == nil {
		return []*ports.AnalysisRun{}, nil
	}
	runs, err := s.runs.FindByInputHash(ctx, hash)
	if err != nil {
		return nil, errors.DatabaseError("failed to find runs", err)
	}
	return runs, nil
}

// HistoryEnabled reports whether runs are stored.
func (s *AnalysisService) HistoryEnabled() bool {
	return s.runs != nil
}

func (s *AnalysisService) execute(ctx context.Context, req AnalysisRequest, raw string, load func() (*comparison.Table, error)) (*RunResult, error) {
	start := time.Now()
	runID := core.NewRunID()
	logger := s.logger.With(zap.String("run_id", runID.String()))

	tbl, err := load()
	if err != nil {
		s.metrics.ObserveAnalysis(metrics.OutcomeInvalid, time.Since(start))
		logger.Warn("analysis rejected", zap.Error(err))
		return nil, errors.FromDomain(err)
	}

	rep, err := s.evaluate(ctx, tbl, req)
	if err != nil {
		s.metrics.ObserveAnalysis(metrics.OutcomeError, time.Since(start))
		return nil, errors.Wrap(err, "analysis failed")
	}

	out, err := report.EncodeJSON(rep)
	if err != nil {
		s.metrics.ObserveAnalysis(metrics.OutcomeError, time.Since(start))
		return nil, errors.Wrap(err, "failed to encode report")
	}

	elapsed := time.Since(start)
	s.metrics.ObserveAnalysis(metrics.OutcomeOK, elapsed)

	result := &RunResult{
		RunID:    runID,
		Report:   rep,
		Result:   string(out),
		RowCount: tbl.Len(),
		Duration: elapsed,
	}

	if s.runs != nil {
		run := &ports.AnalysisRun{
			ID:          runID,
			GroupColumn: req.GroupColumn,
			Metrics:     rep.Names(),
			Replicate:   s.options(req).Replicate,
			AllowList:   req.AllowList,
			InputHash:   core.InputHash(raw, req.GroupColumn, req.Metrics, s.options(req).Replicate, req.AllowList),
			RowCount:    tbl.Len(),
			Result:      result.Result,
			DurationMS:  elapsed.Milliseconds(),
			CreatedAt:   core.Now(),
		}
		err := s.runs.Save(ctx, run)
		s.metrics.ObservePersist(err)
		if err != nil {
			// History is best effort.
			logger.Error("failed to store run", zap.Error(err))
		} else {
			result.Persisted = true
		}
	}

	logger.Info("analysis completed",
		zap.Strings("metrics", rep.Names()),
		zap.Int("rows", tbl.Len()),
		zap.Duration("duration", elapsed))

	return result, nil
}

func (s *AnalysisService) prepare(req AnalysisRequest) (*comparison.Table, error) {
	if err := checkGroupColumn(req.GroupColumn); err != nil {
		return nil, err
	}
	return s.loader.Load(req.Data, s.options(req))
}

func (s *AnalysisService) options(req AnalysisRequest) table.Options {
	replicate := req.Replicate
	if replicate < 1 {
		replicate = 1
	}
	return table.Options{
		GroupColumn: req.GroupColumn,
		AllowList:   req.AllowList,
		Replicate:   replicate,
		MaxRows:     s.maxRows,
	}
}

// evaluate fans metrics out to at most s.workers goroutines. Each metric reads
// only the shared read-only table, and results land in request order.
func (s *AnalysisService) evaluate(ctx context.Context, tbl *comparison.Table, req AnalysisRequest) (*comparison.Report, error) {
	names := metricNames(tbl, req)
	reports := make([]comparison.MetricReport, len(names))
	analysed := make([]bool, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i], analysed[i] = s.evaluateMetric(tbl, name, req.GroupColumn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &comparison.Report{Metrics: make([]comparison.MetricReport, 0, len(names))}
	for i, r := range reports {
		if !analysed[i] {
			continue
		}
		rep.Metrics = append(rep.Metrics, r)
		test := ""
		if r.Test != nil {
			test = r.Test.Name
		}
		s.metrics.ObserveMetric(test, string(r.Kind))
	}
	return rep, nil
}

// evaluateMetric runs one metric's pipeline. ok is false when the metric is
// the grouping column.
func (s *AnalysisService) evaluateMetric(tbl *comparison.Table, metric, groupColumn string) (comparison.MetricReport, bool) {
	logger := s.logger.With(zap.String("metric", metric))

	cleaned, ok, err := cleaning.Clean(tbl, metric, groupColumn)
	if !ok {
		logger.Debug("metric is the grouping column, skipped")
		return comparison.MetricReport{}, false
	}
	if err != nil {
		logger.Debug("metric not analysed", zap.Error(err))
		return s.assembler.Failure(metric, err, report.Partial{}), true
	}

	groups := cleaning.GroupBy(cleaned.Observations)
	partial := report.Partial{GroupCount: len(groups)}

	desc, err := s.assembler.Describe(groups)
	if err != nil {
		return s.assembler.Failure(metric, core.NewDegenerateError("descriptive statistics", err.Error()), partial), true
	}
	partial.Descriptive = desc

	assessment, err := s.assessor.Assess(groups)
	if err != nil {
		logger.Debug("normality assessment failed", zap.Error(err))
		return s.assembler.Failure(metric, err, partial), true
	}
	partial.Assessment = &assessment

	decision, err := s.selector.Select(groups, assessment)
	if err != nil {
		logger.Debug("test selection failed", zap.Error(err))
		partial.Decision = decision
		return s.assembler.Failure(metric, err, partial), true
	}

	logger.Debug("metric analysed",
		zap.Int("groups", len(groups)),
		zap.Int("dropped_rows", cleaned.Dropped),
		zap.Bool("all_normal", assessment.AllNormal),
		zap.String("test", decision.Test.Name),
		zap.Float64("p", decision.Test.PValue))

	return s.assembler.Complete(metric, desc, assessment, decision), true
}

// metricNames returns the requested metrics without repeats, first position
// kept. An empty request means every column except the grouping column.
func metricNames(tbl *comparison.Table, req AnalysisRequest) []string {
	requested := req.Metrics
	if len(requested) == 0 {
		for _, c := range tbl.Columns {
			if c != req.GroupColumn {
				requested = append(requested, c)
			}
		}
	}

	seen := make(map[string]bool, len(requested))
	names := make([]string, 0, len(requested))
	for _, m := range requested {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		names = append(names, m)
	}
	return names
}

func checkGroupColumn(name string) error {
	if strings.TrimSpace(name) == "" {
		return core.NewGroupColumnError(name)
	}
	return nil
}

// canonicalText renders a table as comma-separated text for hashing.
func canonicalText(tbl *comparison.Table) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(tbl.Columns)
	record := make([]string, len(tbl.Columns))
	for _, row := range tbl.Rows {
		for i, c := range tbl.Columns {
			record[i] = row[c]
		}
		_ = w.Write(record)
	}
	w.Flush()
	return b.String()
}
