package reconciler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/logging"
	"github.com/agentstation/skusync/pkg/registry"
	"github.com/agentstation/skusync/pkg/reports"
)

// merger folds source outputs into the shared aggregation map. The fold is
// serial; summation is associative and commutative, so the order files were
// parsed in never affects the result.
type merger struct {
	registry   *registry.Registry
	reportType reports.Type
	options    *options

	channels []reports.Channel
	byID     map[reports.ChannelID]reports.Channel
}

// newMerger prepares a merger for one report type.
func newMerger(reg *registry.Registry, t reports.Type, opts *options) *merger {
	channels := reg.Channels(t)
	byID := make(map[reports.ChannelID]reports.Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}
	return &merger{
		registry:   reg,
		reportType: t,
		options:    opts,
		channels:   channels,
		byID:       byID,
	}
}

// fold aggregates every record from every source into one row per master
// SKU. Every master SKU gets a row up front with all declared cells at
// zero; a SKU no source mentions therefore still appears, all-zero.
func (m *merger) fold(ctx context.Context, outputs []sourceOutput) (*Result, error) {
	log := logging.FromContext(ctx)

	result := NewResult(m.reportType, m.channels)

	rows := make([]reports.Row, 0, len(m.registry.MasterSKUs()))
	index := make(map[reports.MasterSKU]int)
	for _, sku := range m.registry.MasterSKUs() {
		index[sku] = len(rows)
		rows = append(rows, m.zeroRow(sku))
	}

	var bundle *reports.Row
	if m.options.bundles {
		b := m.zeroRow(reports.BundleSKU)
		bundle = &b
	}

	for _, out := range outputs {
		result.Diagnostics.Merge(out.diagnostics)
		result.Sources = append(result.Sources, out.name)

		for _, rec := range out.records {
			row, ok, err := m.route(rec, index, rows, bundle, result.Diagnostics, log)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			row.Cells[rec.Channel][rec.Metric] = row.Cells[rec.Channel][rec.Metric].Add(rec.Value)
		}
	}

	for i := range rows {
		m.total(&rows[i])
	}
	result.Rows = rows

	if bundle != nil {
		m.total(bundle)
		result.Bundle = bundle
	}

	return result, nil
}

// route validates one record and returns the row it folds into, or ok=false
// when the record is dropped with a diagnostic. Diagnostics count dropped
// records, not raw rows: a row carrying several metrics counts once per
// metric. The only fatal outcome is an unmapped identifier under the fail
// policy.
func (m *merger) route(rec reports.QuantityRecord, index map[reports.MasterSKU]int, rows []reports.Row, bundle *reports.Row, diags *reports.Diagnostics, log *zerolog.Logger) (*reports.Row, bool, error) {
	channel, declared := m.byID[rec.Channel]
	if !declared || !channel.Tracks(rec.Metric) {
		// The registry narrows what a channel tracks; extract columns outside
		// that are intentionally untracked, not an error.
		log.Debug().
			Str("channel", string(rec.Channel)).
			Str("metric", string(rec.Metric)).
			Msg("Dropping record for untracked channel metric")
		return nil, false, nil
	}

	if rec.Value.IsNegative() {
		qErr := errors.NewInvalidQuantityError(string(rec.Channel), rec.RawSKU, string(rec.Metric), rec.Value.String())
		diags.Record(rec.Channel, reports.DiagnosticInvalidQuantity, qErr.Error())
		log.Warn().Err(qErr).Msg("Dropping negative quantity")
		return nil, false, nil
	}

	sku, err := m.registry.Resolve(rec.Channel, rec.RawSKU)
	if err != nil {
		if !errors.IsUnmappedIdentifier(err) {
			return nil, false, err
		}
		if m.options.unmapped == UnmappedFail {
			return nil, false, err
		}
		diags.Record(rec.Channel, reports.DiagnosticUnmapped, err.Error())
		log.Warn().Err(err).Msg("Dropping record with unmapped identifier")
		return nil, false, nil
	}

	if sku == reports.BundleSKU {
		if bundle == nil {
			diags.Record(rec.Channel, reports.DiagnosticUnmapped,
				fmt.Sprintf("bundle code %q with bundles disabled", rec.RawSKU))
			return nil, false, nil
		}
		return bundle, true, nil
	}

	i, ok := index[sku]
	if !ok {
		// Resolve only returns SKUs from the universe; anything else is a
		// registry bug worth failing loudly on.
		return nil, false, errors.NewConfigError("reconciler",
			fmt.Sprintf("resolved SKU %q is outside the master universe", sku), nil)
	}
	return &rows[i], true, nil
}

// zeroRow builds a row with every declared (channel, metric) cell at zero.
// Metrics a channel does not declare get no cell at all: structurally
// absent, not zero.
func (m *merger) zeroRow(sku reports.MasterSKU) reports.Row {
	cells := make(map[reports.ChannelID]reports.Cells, len(m.channels))
	for _, ch := range m.channels {
		c := make(reports.Cells, len(ch.Metrics))
		for _, metric := range ch.Metrics {
			c[metric] = decimal.Zero
		}
		cells[ch.ID] = c
	}
	totals := make(reports.Cells, len(m.reportType.Metrics()))
	for _, metric := range m.reportType.Metrics() {
		totals[metric] = decimal.Zero
	}
	return reports.Row{SKU: sku, Cells: cells, Totals: totals}
}

// total recomputes a row's cross-channel totals from its cells.
func (m *merger) total(row *reports.Row) {
	for _, metric := range m.reportType.Metrics() {
		sum := decimal.Zero
		for _, ch := range m.channels {
			if v, ok := row.Cells[ch.ID][metric]; ok {
				sum = sum.Add(v)
			}
		}
		row.Totals[metric] = sum
	}
}
