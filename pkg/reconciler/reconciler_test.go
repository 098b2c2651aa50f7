package reconciler

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/parsers"
	"github.com/agentstation/skusync/pkg/registry"
	"github.com/agentstation/skusync/pkg/reports"
)

const testMapping = `
master_skus:
  - "1001"
  - "2001"
  - "3001"
channels:
  - id: amazon
    name: Amazon
    report: sales
    metrics: [units, revenue]
    identity: true
    aliases:
      AMZ-OLD: "1001"
    bundles:
      - BND-2PK
  - id: walmart
    name: Walmart
    report: sales
    metrics: [units, revenue]
    identity: true
  - id: wfs
    name: Walmart WFS
    report: inventory
    metrics: [on_hand, inbound]
    identity: true
`

// decimalEqual lets go-cmp compare decimals by value rather than internals.
var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Parse([]byte(testMapping))
	require.NoError(t, err)
	return reg
}

func source(name string, p Parser, content string, date time.Time) Source {
	return Source{
		Name:   name,
		Parser: p,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
		FileDate: date,
	}
}

func findRow(t *testing.T, rows []reports.Row, sku reports.MasterSKU) *reports.Row {
	t.Helper()
	for i := range rows {
		if rows[i].SKU == sku {
			return &rows[i]
		}
	}
	t.Fatalf("no row for SKU %q", sku)
	return nil
}

func cell(t *testing.T, row *reports.Row, channel reports.ChannelID, metric reports.Metric) decimal.Decimal {
	t.Helper()
	v, ok := row.Cell(channel, metric)
	require.True(t, ok, "cell %s/%s absent", channel, metric)
	return v
}

func TestReconcileZeroFillWithNoSources(t *testing.T) {
	runDate := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	r, err := New(testRegistry(t), WithClock(func() time.Time { return runDate }))
	require.NoError(t, err)

	result, err := r.Reconcile(context.Background(), reports.Sales, nil)
	require.NoError(t, err)

	// Every master SKU appears, all cells zero, even with zero inputs.
	require.Len(t, result.Rows, 3)
	assert.Equal(t, reports.MasterSKU("1001"), result.Rows[0].SKU)
	assert.Equal(t, reports.MasterSKU("3001"), result.Rows[2].SKU)
	for i := range result.Rows {
		row := &result.Rows[i]
		assert.True(t, cell(t, row, "amazon", reports.MetricUnits).IsZero())
		assert.True(t, cell(t, row, "walmart", reports.MetricRevenue).IsZero())
		assert.True(t, row.Totals[reports.MetricUnits].IsZero())
	}
	assert.Equal(t, runDate, result.AsOf)
	assert.True(t, result.Diagnostics.Empty())
}

func TestReconcileSalesAcrossChannels(t *testing.T) {
	amazon := strings.Join([]string{
		"SKU,Units Ordered,Ordered Product Sales",
		"1001,10,$100.00",
		"AMZ-OLD,2,$20.00",
		"2001,3,$45.00",
	}, "\n")
	walmart := strings.Join([]string{
		"SKU,Units_Sold,Gross_Sales",
		"2001,5,50.00",
		"9999,1,10.00",
	}, "\n")

	r, err := New(testRegistry(t))
	require.NoError(t, err)

	result, err := r.Reconcile(context.Background(), reports.Sales, []Source{
		source("amazon.csv", parsers.NewAmazonSales(), amazon, time.Time{}),
		source("walmart.csv", parsers.NewWalmartSales(), walmart, time.Time{}),
	})
	require.NoError(t, err)

	// The alias row folds into the same cell as the canonical identifier.
	row1001 := findRow(t, result.Rows, "1001")
	assert.True(t, cell(t, row1001, "amazon", reports.MetricUnits).Equal(decimal.NewFromInt(12)))
	assert.True(t, cell(t, row1001, "amazon", reports.MetricRevenue).Equal(decimal.RequireFromString("120.00")))
	assert.True(t, cell(t, row1001, "walmart", reports.MetricUnits).IsZero())

	row2001 := findRow(t, result.Rows, "2001")
	assert.True(t, row2001.Totals[reports.MetricUnits].Equal(decimal.NewFromInt(8)))
	assert.True(t, row2001.Totals[reports.MetricRevenue].Equal(decimal.RequireFromString("95.00")))

	// The SKU no file mentioned still gets its zero row.
	row3001 := findRow(t, result.Rows, "3001")
	assert.True(t, row3001.Totals[reports.MetricUnits].IsZero())

	// The unmapped walmart identifier is excluded and counted, never
	// attributed to another SKU. Counting is per dropped record, so one raw
	// row counts once per metric it carried.
	assert.Equal(t, 2, result.Diagnostics.Count("walmart", reports.DiagnosticUnmapped))
	assert.Equal(t, []string{"amazon.csv", "walmart.csv"}, result.Sources)
}

func TestReconcileOrderIndependence(t *testing.T) {
	amazon := "SKU,Units Ordered,Ordered Product Sales\n1001,4,$40.00\n"
	walmart := "SKU,Units_Sold,Gross_Sales\n1001,6,60.00\n"

	srcs := []Source{
		source("a.csv", parsers.NewAmazonSales(), amazon, time.Time{}),
		source("w.csv", parsers.NewWalmartSales(), walmart, time.Time{}),
	}
	reversed := []Source{srcs[1], srcs[0]}

	r, err := New(testRegistry(t))
	require.NoError(t, err)

	first, err := r.Reconcile(context.Background(), reports.Sales, srcs)
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), reports.Sales, reversed)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Rows, second.Rows, decimalEqual); diff != "" {
		t.Errorf("rows differ by source order (-first +second):\n%s", diff)
	}
}

func TestReconcileRejectsNegativeQuantities(t *testing.T) {
	amazon := strings.Join([]string{
		"SKU,Units Ordered,Ordered Product Sales",
		"1001,-5,$10.00",
		"2001,3,$30.00",
	}, "\n")

	r, err := New(testRegistry(t))
	require.NoError(t, err)

	result, err := r.Reconcile(context.Background(), reports.Sales, []Source{
		source("amazon.csv", parsers.NewAmazonSales(), amazon, time.Time{}),
	})
	require.NoError(t, err)

	// The negative units record is dropped; the revenue record from the same
	// row still folds in.
	row := findRow(t, result.Rows, "1001")
	assert.True(t, cell(t, row, "amazon", reports.MetricUnits).IsZero())
	assert.True(t, cell(t, row, "amazon", reports.MetricRevenue).Equal(decimal.RequireFromString("10.00")))
	assert.Equal(t, 1, result.Diagnostics.Count("amazon", reports.DiagnosticInvalidQuantity))
}

func TestReconcileUnmappedFailPolicy(t *testing.T) {
	walmart := "SKU,Units_Sold,Gross_Sales\n9999,1,10.00\n"

	r, err := New(testRegistry(t), WithUnmappedPolicy(UnmappedFail))
	require.NoError(t, err)

	_, err = r.Reconcile(context.Background(), reports.Sales, []Source{
		source("walmart.csv", parsers.NewWalmartSales(), walmart, time.Time{}),
	})
	require.Error(t, err)
	assert.True(t, errors.IsUnmappedIdentifier(err))
}

func TestReconcileBundleRow(t *testing.T) {
	amazon := strings.Join([]string{
		"SKU,Units Ordered,Ordered Product Sales",
		"BND-2PK,7,$140.00",
		"1001,1,$10.00",
	}, "\n")

	r, err := New(testRegistry(t), WithBundles(true))
	require.NoError(t, err)

	result, err := r.Reconcile(context.Background(), reports.Sales, []Source{
		source("amazon.csv", parsers.NewAmazonSales(), amazon, time.Time{}),
	})
	require.NoError(t, err)

	require.NotNil(t, result.Bundle)
	assert.Equal(t, reports.BundleSKU, result.Bundle.SKU)
	assert.True(t, cell(t, result.Bundle, "amazon", reports.MetricUnits).Equal(decimal.NewFromInt(7)))

	// Materialized report appends the bundle row after the master universe.
	report := result.Report()
	require.Len(t, report.Rows, 4)
	assert.Equal(t, reports.BundleSKU, report.Rows[3].SKU)
}

func TestReconcileBundlesDisabledCountsAsUnmapped(t *testing.T) {
	amazon := "SKU,Units Ordered,Ordered Product Sales\nBND-2PK,7,$140.00\n"

	r, err := New(testRegistry(t))
	require.NoError(t, err)

	result, err := r.Reconcile(context.Background(), reports.Sales, []Source{
		source("amazon.csv", parsers.NewAmazonSales(), amazon, time.Time{}),
	})
	require.NoError(t, err)

	assert.Nil(t, result.Bundle)
	assert.Equal(t, 2, result.Diagnostics.Count("amazon", reports.DiagnosticUnmapped))
}

func TestReconcileSkipsUnusableSource(t *testing.T) {
	good := "SKU,Units Ordered,Ordered Product Sales\n1001,2,$20.00\n"
	bad := "Completely,Wrong,Header\n1001,2,x\n"

	r, err := New(testRegistry(t))
	require.NoError(t, err)

	result, err := r.Reconcile(context.Background(), reports.Sales, []Source{
		source("good.csv", parsers.NewAmazonSales(), good, time.Time{}),
		source("bad.csv", parsers.NewAmazonSales(), bad, time.Time{}),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"bad.csv"}, result.SkippedSources)
	assert.Equal(t, []string{"good.csv"}, result.Sources)
	row := findRow(t, result.Rows, "1001")
	assert.True(t, cell(t, row, "amazon", reports.MetricUnits).Equal(decimal.NewFromInt(2)))
}

func TestReconcileCancelledContext(t *testing.T) {
	amazon := "SKU,Units Ordered,Ordered Product Sales\n1001,2,$20.00\n"

	r, err := New(testRegistry(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Cancellation aborts the run instead of skipping the source.
	_, err = r.Reconcile(ctx, reports.Sales, []Source{
		source("amazon.csv", parsers.NewAmazonSales(), amazon, time.Time{}),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconcileAsOfIsMaxFileDate(t *testing.T) {
	older := time.Date(2026, 8, 18, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	amazon := "SKU,Units Ordered,Ordered Product Sales\n1001,1,$10.00\n"
	walmart := "SKU,Units_Sold,Gross_Sales\n1001,1,10.00\n"

	r, err := New(testRegistry(t))
	require.NoError(t, err)

	result, err := r.Reconcile(context.Background(), reports.Sales, []Source{
		source("amazon.csv", parsers.NewAmazonSales(), amazon, older),
		source("walmart.csv", parsers.NewWalmartSales(), walmart, newer),
	})
	require.NoError(t, err)
	assert.Equal(t, newer, result.AsOf)
}

func TestReconcileInventoryStructuralAbsence(t *testing.T) {
	wfs := "SKU,Available units,Inbound units\n1001,5,2\n"

	r, err := New(testRegistry(t))
	require.NoError(t, err)

	result, err := r.Reconcile(context.Background(), reports.Inventory, []Source{
		source("wfs.csv", parsers.NewWFSInventory(), wfs, time.Time{}),
	})
	require.NoError(t, err)

	row := findRow(t, result.Rows, "1001")
	assert.True(t, cell(t, row, "wfs", reports.MetricOnHand).Equal(decimal.NewFromInt(5)))

	// The channel declares no units_sold metric, so the cell does not exist.
	_, ok := row.Cell("wfs", reports.MetricUnitsSold)
	assert.False(t, ok)
	assert.True(t, row.Totals[reports.MetricOnHand].Equal(decimal.NewFromInt(5)))
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(testRegistry(t), WithUnmappedPolicy("explode"))
	assert.Error(t, err)
	_, err = New(testRegistry(t), WithConcurrency(0))
	assert.Error(t, err)
	_, err = New(testRegistry(t), WithClock(nil))
	assert.Error(t, err)
}
