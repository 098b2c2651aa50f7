package reconciler

import (
	"time"

	"github.com/agentstation/utc"

	"github.com/agentstation/skusync/pkg/reports"
)

// Result is the outcome of one reconciliation run: aggregated rows in
// registry order, an optional trailing bundle row, and the diagnostics and
// source bookkeeping accumulated along the way.
type Result struct {
	Type     reports.Type
	Channels []reports.Channel

	// Rows holds one aggregated row per master SKU, in registry order.
	Rows []reports.Row

	// Bundle is the pseudo-SKU row for bundle sales, nil unless enabled.
	Bundle *reports.Row

	// Diagnostics accumulates every per-row problem from parsing and folding.
	Diagnostics *reports.Diagnostics

	// AsOf is the max file date among contributing sources, or the run date.
	AsOf time.Time

	// Sources lists the files that contributed records; SkippedSources the
	// files that were unusable and excluded from the run.
	Sources        []string
	SkippedSources []string
}

// NewResult returns an empty result for the given report type.
func NewResult(t reports.Type, channels []reports.Channel) *Result {
	return &Result{
		Type:        t,
		Channels:    channels,
		Diagnostics: reports.NewDiagnostics(),
	}
}

// Report materializes the result as a finished report. The bundle row, when
// present, is appended after the master-SKU rows.
func (r *Result) Report() *reports.Report {
	rows := r.Rows
	if r.Bundle != nil {
		rows = make([]reports.Row, 0, len(r.Rows)+1)
		rows = append(rows, r.Rows...)
		rows = append(rows, *r.Bundle)
	}
	return &reports.Report{
		Type:        r.Type,
		AsOf:        utc.Time{Time: r.AsOf},
		Channels:    r.Channels,
		Rows:        rows,
		Diagnostics: r.Diagnostics,
	}
}
