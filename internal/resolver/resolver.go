package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"codegraph/internal/metrics"
	"codegraph/internal/storage"

	"golang.org/x/sync/errgroup"
)

// DefaultFileTopN caps the file-level dependency report.
const DefaultFileTopN = 50

type Config struct {
	FileTopN int
}

// CodebaseCount is the number of nodes owned by one codebase.
type CodebaseCount struct {
	CodebaseID string `json:"codebaseId"`
	NodeCount  int64  `json:"nodeCount"`
}

type KindCount struct {
	CodebaseID string `json:"codebaseId"`
	Kind       string `json:"kind"`
	NodeCount  int64  `json:"nodeCount"`
}

// EdgeCount groups cross-codebase relationships by type and direction.
type EdgeCount struct {
	RelType          string `json:"relType"`
	SourceCodebaseID string `json:"sourceCodebaseId"`
	TargetCodebaseID string `json:"targetCodebaseId"`
	RelCount         int64  `json:"relCount"`
}

// CodebaseDependency is one weighted edge of the codebase dependency matrix.
type CodebaseDependency struct {
	SourceCodebaseID string `json:"sourceCodebaseId"`
	TargetCodebaseID string `json:"targetCodebaseId"`
	Weight           int64  `json:"weight"`
}

type FileDependency struct {
	SourceCodebaseID string `json:"sourceCodebaseId"`
	SourceFile       string `json:"sourceFile"`
	TargetCodebaseID string `json:"targetCodebaseId"`
	TargetFile       string `json:"targetFile"`
	RelCount         int64  `json:"relCount"`
}

// Report gathers the five cross-codebase reports. A step that failed has an
// empty slice and a line in Warnings.
type Report struct {
	Codebases  []CodebaseCount      `json:"codebases"`
	Kinds      []KindCount          `json:"kinds"`
	CrossEdges []EdgeCount          `json:"crossEdges"`
	Matrix     []CodebaseDependency `json:"matrix"`
	Files      []FileDependency     `json:"files"`
	Warnings   []string             `json:"warnings,omitempty"`
}

// Resolver answers read-only questions about how codebases in the shared
// graph relate to each other. It holds no state between calls.
type Resolver struct {
	store  storage.Store
	cfg    Config
	logger *slog.Logger
}

func New(store storage.Store, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.FileTopN <= 0 {
		cfg.FileTopN = DefaultFileTopN
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, cfg: cfg, logger: logger}
}

func (r *Resolver) run(ctx context.Context, q query, params map[string]any) ([]storage.Record, error) {
	text, ok := q[r.store.Dialect()]
	if !ok {
		return nil, fmt.Errorf("no query for dialect %s", r.store.Dialect())
	}
	res, err := r.store.Run(ctx, text, params)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Census counts nodes per codebase, largest first.
func (r *Resolver) Census(ctx context.Context) ([]CodebaseCount, error) {
	records, err := r.run(ctx, censusQuery, nil)
	if err != nil {
		return nil, err
	}
	out := make([]CodebaseCount, 0, len(records))
	for _, rec := range records {
		var row CodebaseCount
		if row.CodebaseID, err = rec.String("codebaseId"); err != nil {
			return nil, err
		}
		if row.NodeCount, err = rec.Int("nodeCount"); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// KindBreakdown counts nodes per codebase and primary kind.
func (r *Resolver) KindBreakdown(ctx context.Context) ([]KindCount, error) {
	records, err := r.run(ctx, kindQuery, nil)
	if err != nil {
		return nil, err
	}
	out := make([]KindCount, 0, len(records))
	for _, rec := range records {
		var row KindCount
		if row.CodebaseID, err = rec.String("codebaseId"); err != nil {
			return nil, err
		}
		if row.Kind, err = rec.String("kind"); err != nil {
			return nil, err
		}
		if row.NodeCount, err = rec.Int("nodeCount"); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *Resolver) CrossCodebaseEdges(ctx context.Context) ([]EdgeCount, error) {
	records, err := r.run(ctx, crossEdgeQuery, nil)
	if err != nil {
		return nil, err
	}
	out := make([]EdgeCount, 0, len(records))
	for _, rec := range records {
		var row EdgeCount
		if row.RelType, err = rec.String("relType"); err != nil {
			return nil, err
		}
		if row.SourceCodebaseID, err = rec.String("sourceCodebaseId"); err != nil {
			return nil, err
		}
		if row.TargetCodebaseID, err = rec.String("targetCodebaseId"); err != nil {
			return nil, err
		}
		if row.RelCount, err = rec.Int("relCount"); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *Resolver) DependencyMatrix(ctx context.Context) ([]CodebaseDependency, error) {
	records, err := r.run(ctx, matrixQuery, nil)
	if err != nil {
		return nil, err
	}
	out := make([]CodebaseDependency, 0, len(records))
	for _, rec := range records {
		var row CodebaseDependency
		if row.SourceCodebaseID, err = rec.String("sourceCodebaseId"); err != nil {
			return nil, err
		}
		if row.TargetCodebaseID, err = rec.String("targetCodebaseId"); err != nil {
			return nil, err
		}
		if row.Weight, err = rec.Int("weight"); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// FileDependencies lists the most connected cross-codebase file pairs,
// capped at Config.FileTopN.
func (r *Resolver) FileDependencies(ctx context.Context) ([]FileDependency, error) {
	records, err := r.run(ctx, fileDependencyQuery, map[string]any{"limit": int64(r.cfg.FileTopN)})
	if err != nil {
		return nil, err
	}
	out := make([]FileDependency, 0, len(records))
	for _, rec := range records {
		var row FileDependency
		if row.SourceCodebaseID, err = rec.String("sourceCodebaseId"); err != nil {
			return nil, err
		}
		if row.SourceFile, err = rec.String("sourceFile"); err != nil {
			return nil, err
		}
		if row.TargetCodebaseID, err = rec.String("targetCodebaseId"); err != nil {
			return nil, err
		}
		if row.TargetFile, err = rec.String("targetFile"); err != nil {
			return nil, err
		}
		if row.RelCount, err = rec.Int("relCount"); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// Report runs the five reports concurrently. A failing step is logged and
// degrades to an empty result; the other steps are unaffected.
func (r *Resolver) Report(ctx context.Context) *Report {
	rep := &Report{}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	step := func(name string, fn func() error) {
		g.Go(func() error {
			if err := fn(); err != nil {
				r.logger.Warn("report step failed", "step", name, "error", err)
				metrics.ReportStepFailures.WithLabelValues(name).Inc()
				mu.Lock()
				rep.Warnings = append(rep.Warnings, fmt.Sprintf("%s: %v", name, err))
				mu.Unlock()
			}
			return nil
		})
	}

	step("census", func() error {
		rows, err := r.Census(ctx)
		rep.Codebases = orEmpty(rows, err)
		return err
	})
	step("kinds", func() error {
		rows, err := r.KindBreakdown(ctx)
		rep.Kinds = orEmpty(rows, err)
		return err
	})
	step("cross_edges", func() error {
		rows, err := r.CrossCodebaseEdges(ctx)
		rep.CrossEdges = orEmpty(rows, err)
		return err
	})
	step("matrix", func() error {
		rows, err := r.DependencyMatrix(ctx)
		rep.Matrix = orEmpty(rows, err)
		return err
	})
	step("files", func() error {
		rows, err := r.FileDependencies(ctx)
		rep.Files = orEmpty(rows, err)
		return err
	})

	_ = g.Wait()
	return rep
}

func orEmpty[T any](rows []T, err error) []T {
	if err != nil || rows == nil {
		return []T{}
	}
	return rows
}
