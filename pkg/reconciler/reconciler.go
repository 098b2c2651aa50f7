// Package reconciler implements the core normalization-and-aggregation
// engine. It resolves raw channel identifiers to master SKUs through the
// registry, folds quantity records from every contributing source into one
// row per master SKU, and zero-fills SKUs no source reported, so the output
// is schema-stable no matter which input files were present.
package reconciler

import (
	"context"
	"io"
	"time"

	"github.com/agentstation/skusync/pkg/constants"
	"github.com/agentstation/skusync/pkg/logging"
	"github.com/agentstation/skusync/pkg/registry"
	"github.com/agentstation/skusync/pkg/reports"
)

// Source is one discovered input file bound to its parser. Open is called
// once during the run; FileDate stamps the as-of date of the output.
type Source struct {
	Name     string
	Parser   Parser
	Open     func() (io.ReadCloser, error)
	FileDate time.Time
}

// Parser is the capability the reconciler needs from a channel parser.
// pkg/parsers implementations satisfy it.
type Parser interface {
	Channel() reports.ChannelID
	Type() reports.Type
	Parse(ctx context.Context, r io.Reader) ([]reports.QuantityRecord, *reports.Diagnostics, error)
}

// Reconciler folds parsed channel records into aggregated report rows.
type Reconciler interface {
	// Reconcile runs all sources for one report type and returns the
	// aggregated result. Per-row problems become diagnostics; only an
	// unmapped identifier under the fail policy or a cancelled context
	// aborts the run.
	Reconcile(ctx context.Context, t reports.Type, srcs []Source) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	registry *registry.Registry
	options  *options
}

// New creates a Reconciler over the given registry.
func New(reg *registry.Registry, opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{registry: reg, options: options}, nil
}

// Reconcile implements Reconciler. Sources are parsed concurrently (they
// share no mutable state) and folded serially, so the commutative-sum
// invariant holds without races.
func (r *reconciler) Reconcile(ctx context.Context, t reports.Type, srcs []Source) (*Result, error) {
	log := logging.FromContext(ctx)

	// Parsing is bounded separately from the caller's deadline; a wedged
	// source file must not stall the run forever.
	parseCtx, cancel := context.WithTimeout(ctx, constants.ParseTimeout)
	defer cancel()

	outputs, skipped, err := collect(parseCtx, srcs, r.options.concurrency)
	if err != nil {
		return nil, err
	}

	m := newMerger(r.registry, t, r.options)
	result, err := m.fold(ctx, outputs)
	if err != nil {
		return nil, err
	}
	result.SkippedSources = skipped
	result.AsOf = asOf(outputs, r.options.now)

	log.Info().
		Str("report", string(t)).
		Int("sources", len(outputs)).
		Int("rows", len(result.Rows)).
		Int("diagnostics", result.Diagnostics.Total()).
		Msg("Reconciled report")

	return result, nil
}

// asOf is the max file date among contributing sources, or the run date
// when no source carried one.
func asOf(outputs []sourceOutput, now func() time.Time) time.Time {
	var max time.Time
	for _, out := range outputs {
		if out.fileDate.After(max) {
			max = out.fileDate
		}
	}
	if max.IsZero() {
		return now()
	}
	return max
}
