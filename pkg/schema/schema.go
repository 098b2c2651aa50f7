// Package schema validates finished reports against the output contract
// derived from the registry: fixed row universe in registry order, exactly
// the declared channel metric cells, consistent totals, and no negative
// values. A violation here means a bug upstream, so it is fatal and blocks
// every sink and delivery.
package schema

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/agentstation/skusync/pkg/constants"
	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/registry"
	"github.com/agentstation/skusync/pkg/reports"
)

// Validator checks reports against the contract the registry defines.
type Validator struct {
	registry *registry.Registry
	validate *validator.Validate
}

// rowIdentity carries the per-row scalar fields through struct validation.
type rowIdentity struct {
	SKU  string `validate:"required"`
	AsOf string `validate:"required,datetime=2006-01-02"`
}

// New creates a Validator over the given registry.
func New(reg *registry.Registry) *Validator {
	return &Validator{
		registry: reg,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Validate checks one report. bundles declares whether a trailing bundle
// pseudo-row is expected. The returned error, when non-nil, is a
// SchemaViolationError listing every violation found.
func (v *Validator) Validate(report *reports.Report, bundles bool) error {
	var violations []string

	if !report.Type.Valid() {
		violations = append(violations, fmt.Sprintf("unknown report type %q", report.Type))
		return errors.NewSchemaViolationError(string(report.Type), violations)
	}

	if report.AsOf.IsZero() {
		violations = append(violations, "as_of date is unset")
	}

	violations = append(violations, v.checkChannels(report)...)
	violations = append(violations, v.checkRows(report, bundles)...)

	if len(violations) > 0 {
		return errors.NewSchemaViolationError(string(report.Type), violations)
	}
	return nil
}

// checkChannels verifies the report carries exactly the registry's channels
// for its type, in declared order, with the declared metrics.
func (v *Validator) checkChannels(report *reports.Report) []string {
	var violations []string

	want := v.registry.Channels(report.Type)
	if len(report.Channels) != len(want) {
		violations = append(violations, fmt.Sprintf("report has %d channels, registry declares %d", len(report.Channels), len(want)))
		return violations
	}
	for i, ch := range report.Channels {
		if ch.ID != want[i].ID {
			violations = append(violations, fmt.Sprintf("channel %d is %q, registry declares %q", i, ch.ID, want[i].ID))
			continue
		}
		if len(ch.Metrics) != len(want[i].Metrics) {
			violations = append(violations, fmt.Sprintf("channel %q tracks %d metrics, registry declares %d", ch.ID, len(ch.Metrics), len(want[i].Metrics)))
			continue
		}
		for j, m := range ch.Metrics {
			if m != want[i].Metrics[j] {
				violations = append(violations, fmt.Sprintf("channel %q metric %d is %q, registry declares %q", ch.ID, j, m, want[i].Metrics[j]))
			}
		}
	}
	return violations
}

// checkRows verifies the row universe and every cell of every row.
func (v *Validator) checkRows(report *reports.Report, bundles bool) []string {
	var violations []string

	masters := v.registry.MasterSKUs()
	wantRows := len(masters)
	if bundles {
		wantRows++
	}
	if len(report.Rows) != wantRows {
		violations = append(violations, fmt.Sprintf("report has %d rows, want %d", len(report.Rows), wantRows))
		return violations
	}

	asOf := report.AsOf.Format(constants.DateFormat)
	for i := range report.Rows {
		row := &report.Rows[i]

		want := reports.BundleSKU
		if i < len(masters) {
			want = masters[i]
		}
		if row.SKU != want {
			violations = append(violations, fmt.Sprintf("row %d is %q, want %q", i, row.SKU, want))
			continue
		}

		if err := v.validate.Struct(rowIdentity{SKU: string(row.SKU), AsOf: asOf}); err != nil {
			violations = append(violations, fmt.Sprintf("row %q: %v", row.SKU, err))
		}
		violations = append(violations, v.checkCells(report, row)...)
	}
	return violations
}

// checkCells verifies one row holds exactly the declared cells, none
// negative, with totals equal to the cross-channel sums.
func (v *Validator) checkCells(report *reports.Report, row *reports.Row) []string {
	var violations []string

	if len(row.Cells) != len(report.Channels) {
		violations = append(violations, fmt.Sprintf("row %q has cells for %d channels, want %d", row.SKU, len(row.Cells), len(report.Channels)))
	}

	sums := make(map[reports.Metric]decimal.Decimal)
	for _, ch := range report.Channels {
		cells, ok := row.Cells[ch.ID]
		if !ok {
			violations = append(violations, fmt.Sprintf("row %q missing cells for channel %q", row.SKU, ch.ID))
			continue
		}
		if len(cells) != len(ch.Metrics) {
			violations = append(violations, fmt.Sprintf("row %q channel %q has %d cells, want %d", row.SKU, ch.ID, len(cells), len(ch.Metrics)))
		}
		for _, m := range ch.Metrics {
			value, ok := cells[m]
			if !ok {
				violations = append(violations, fmt.Sprintf("row %q missing cell %s_%s", row.SKU, ch.ID, m))
				continue
			}
			if value.IsNegative() {
				violations = append(violations, fmt.Sprintf("row %q cell %s_%s is negative (%s)", row.SKU, ch.ID, m, value))
			}
			sums[m] = sums[m].Add(value)
		}
	}

	for _, m := range report.Type.Metrics() {
		total, ok := row.Totals[m]
		if !ok {
			violations = append(violations, fmt.Sprintf("row %q missing total_%s", row.SKU, m))
			continue
		}
		if !total.Equal(sums[m]) {
			violations = append(violations, fmt.Sprintf("row %q total_%s is %s, cells sum to %s", row.SKU, m, total, sums[m]))
		}
	}
	return violations
}
