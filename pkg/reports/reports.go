// Package reports defines the canonical data model for reconciled channel
// reports: master SKUs, channels, metrics, quantity records produced by
// parsers, and the aggregated rows that make up a finished report.
package reports

import (
	"fmt"

	"github.com/agentstation/utc"
	"github.com/shopspring/decimal"
)

// MasterSKU is the canonical, channel-independent product identifier that
// keys every output row. The universe of master SKUs is fixed by the
// registry, never inferred from input files.
type MasterSKU string

// ChannelID identifies a sales/fulfillment channel (amazon, wfs, dtc, ...).
type ChannelID string

// Metric names a quantity measure tracked per (channel, SKU) cell.
type Metric string

// Metrics tracked across the two report types.
const (
	// MetricUnits is units sold (sales report)
	MetricUnits Metric = "units"

	// MetricRevenue is net revenue (sales report)
	MetricRevenue Metric = "revenue"

	// MetricUnitsSold is trailing units sold carried on inventory extracts
	MetricUnitsSold Metric = "units_sold"

	// MetricOnHand is units on hand (inventory report)
	MetricOnHand Metric = "on_hand"

	// MetricInbound is units inbound to a warehouse (inventory report)
	MetricInbound Metric = "inbound"
)

// Type is the report type produced by a reconciliation run.
type Type string

// Report types.
const (
	Sales     Type = "sales"
	Inventory Type = "inventory"
)

// Valid reports whether t is a known report type.
func (t Type) Valid() bool {
	return t == Sales || t == Inventory
}

// Metrics returns the canonical metric order for the report type.
func (t Type) Metrics() []Metric {
	switch t {
	case Sales:
		return []Metric{MetricUnits, MetricRevenue}
	case Inventory:
		return []Metric{MetricUnitsSold, MetricOnHand, MetricInbound}
	default:
		return nil
	}
}

// BundleSKU is the reserved pseudo-SKU for bundle sales that cannot be
// attributed to a single master SKU. It is never part of the master-SKU
// universe and appears as an extra trailing row when bundles are enabled.
const BundleSKU MasterSKU = "Bundles"

// QuantityRecord is one parsed measurement: a raw channel identifier and a
// single metric value. Parsers never aggregate; duplicate raw rows become
// separate records and the reconciler folds them.
type QuantityRecord struct {
	Channel ChannelID
	RawSKU  string
	Metric  Metric
	Value   decimal.Decimal
}

// Cells maps metric name to value for one channel of one row.
type Cells map[Metric]decimal.Decimal

// Channel describes one channel column group of a report: its identity,
// display name, and the metrics it tracks. A metric missing from Metrics is
// structurally absent for the channel, which is distinct from zero.
type Channel struct {
	ID      ChannelID
	Name    string
	Metrics []Metric
}

// Tracks reports whether the channel tracks the given metric.
func (c Channel) Tracks(m Metric) bool {
	for _, metric := range c.Metrics {
		if metric == m {
			return true
		}
	}
	return false
}

// Row is one aggregated output row keyed by master SKU. Cells holds one
// entry per channel, each with exactly the metrics that channel tracks;
// Totals holds the cross-channel sum per metric.
type Row struct {
	SKU    MasterSKU
	Cells  map[ChannelID]Cells
	Totals Cells
}

// Cell returns the value for (channel, metric) and whether the cell is
// structurally present.
func (r *Row) Cell(channel ChannelID, metric Metric) (decimal.Decimal, bool) {
	cells, ok := r.Cells[channel]
	if !ok {
		return decimal.Zero, false
	}
	v, ok := cells[metric]
	return v, ok
}

// Report is a finished, schema-stable dataset: one row per master SKU in
// registry order, channels in registry display order, stamped with the
// as-of date of its contributing sources.
type Report struct {
	Type        Type
	AsOf        utc.Time
	Channels    []Channel
	Rows        []Row
	Diagnostics *Diagnostics
}

// Channel returns the channel descriptor for the given ID.
func (r *Report) Channel(id ChannelID) (Channel, bool) {
	for _, c := range r.Channels {
		if c.ID == id {
			return c, true
		}
	}
	return Channel{}, false
}

// Columns returns the output column order: identifier and as-of date first,
// then per-channel metric columns in channel order, then totals.
func (r *Report) Columns() []string {
	cols := []string{"sku", "as_of"}
	for _, ch := range r.Channels {
		for _, m := range ch.Metrics {
			cols = append(cols, fmt.Sprintf("%s_%s", ch.ID, m))
		}
	}
	for _, m := range r.Type.Metrics() {
		cols = append(cols, fmt.Sprintf("total_%s", m))
	}
	return cols
}

// Table flattens the report into an ordered header plus one string row per
// aggregated row, for tabular sinks (CSV, XLSX).
func (r *Report) Table() ([]string, [][]string) {
	header := r.Columns()
	rows := make([][]string, 0, len(r.Rows))
	asOf := r.AsOf.Format("2006-01-02")

	for i := range r.Rows {
		row := &r.Rows[i]
		out := make([]string, 0, len(header))
		out = append(out, string(row.SKU), asOf)
		for _, ch := range r.Channels {
			for _, m := range ch.Metrics {
				v, ok := row.Cell(ch.ID, m)
				if !ok {
					out = append(out, "")
					continue
				}
				out = append(out, formatValue(m, v))
			}
		}
		for _, m := range r.Type.Metrics() {
			out = append(out, formatValue(m, row.Totals[m]))
		}
		rows = append(rows, out)
	}
	return header, rows
}

// Records flattens the report into one JSON-ready object per row for the
// webhook payload and JSON sink. Structurally absent cells are omitted.
func (r *Report) Records() []map[string]any {
	records := make([]map[string]any, 0, len(r.Rows))
	asOf := r.AsOf.Format("2006-01-02")

	for i := range r.Rows {
		row := &r.Rows[i]
		rec := map[string]any{
			"sku":   string(row.SKU),
			"as_of": asOf,
		}
		for _, ch := range r.Channels {
			for _, m := range ch.Metrics {
				v, ok := row.Cell(ch.ID, m)
				if !ok {
					continue
				}
				rec[fmt.Sprintf("%s_%s", ch.ID, m)] = jsonValue(m, v)
			}
		}
		for _, m := range r.Type.Metrics() {
			rec[fmt.Sprintf("total_%s", m)] = jsonValue(m, row.Totals[m])
		}
		records = append(records, rec)
	}
	return records
}

// formatValue renders a cell for tabular output. Unit counts print as whole
// numbers, revenue with two decimal places.
func formatValue(m Metric, v decimal.Decimal) string {
	if m == MetricRevenue {
		return v.StringFixed(2)
	}
	return v.Truncate(0).String()
}

// jsonValue renders a cell for JSON output.
func jsonValue(m Metric, v decimal.Decimal) any {
	if m == MetricRevenue {
		f, _ := v.Round(2).Float64()
		return f
	}
	return v.IntPart()
}
