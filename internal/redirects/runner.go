package redirects

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/zeebo/xxh3"

	"github.com/ignite/redirect-cleaner/internal/pkg/logger"
)

// Store reads input and writes output by path (local file or s3:// URL).
type Store interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Write(ctx context.Context, path string, data []byte) error
}

// RunnerConfig configures one cleaning run. A nil Prober disables status checks.
type RunnerConfig struct {
	RunID       string
	Policy      Policy
	Strategy    DedupeStrategy
	Prober      Prober
	ProbeSample int
}

// Runner reads, cleans, optionally probes and writes a redirect map.
type Runner struct {
	store   Store
	cfg     RunnerConfig
	cleaner *Cleaner
}

func NewRunner(store Store, cfg RunnerConfig) *Runner {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	return &Runner{
		store:   store,
		cfg:     cfg,
		cleaner: NewCleaner(cfg.Policy, cfg.Strategy),
	}
}

// Run cleans inputPath into outputPath. When the input is rejected (for
// example a *MissingColumnsError) nothing is written.
func (rn *Runner) Run(ctx context.Context, inputPath, outputPath string) (*Summary, error) {
	in, err := rn.store.Open(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	rows, err := LoadRows(in)
	in.Close()
	if err != nil {
		return nil, err
	}
	logger.Info("rows loaded", "input", inputPath, "count", len(rows))

	res := rn.cleaner.Clean(rows)

	summary := &Summary{
		RunID:        rn.cfg.RunID,
		Strategy:     rn.cfg.Strategy,
		Policy:       rn.cfg.Policy,
		ProbeEnabled: rn.cfg.Prober != nil,
		ProbeSample:  rn.cfg.ProbeSample,
		InputPath:    inputPath,
		OutputPath:   outputPath,
	}

	if rn.cfg.Prober != nil {
		summary.Probed = ProbeRows(ctx, rn.cfg.Prober, res.Rows, rn.cfg.ProbeSample)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, res.Rows); err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	if err := rn.store.Write(ctx, outputPath, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}

	summary.Stats = res.Stats
	summary.Digest = fmt.Sprintf("%016x", xxh3.Hash(buf.Bytes()))

	logger.Info("redirect map cleaned",
		"output", outputPath,
		"input_rows", res.Stats.TotalInput,
		"kept", res.Stats.Kept,
		"deduped", res.Stats.Deduped,
		"dropped", len(res.Dropped),
		"digest", summary.Digest,
	)
	return summary, nil
}
