package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skusync/pkg/registry"
	"github.com/agentstation/skusync/pkg/reports"
	"github.com/agentstation/skusync/pkg/save"
)

const testMapping = `
master_skus:
  - "1001"
  - "2001"
channels:
  - id: amazon
    name: Amazon
    report: sales
    metrics: [units, revenue]
    identity: true
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

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Parse([]byte(testMapping))
	require.NoError(t, err)
	return reg
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunSalesEndToEnd(t *testing.T) {
	input := t.TempDir()
	output := t.TempDir()
	writeFile(t, input, "Amazon_sales_2026-08-20.csv",
		"SKU,Units Ordered,Ordered Product Sales\n1001,10,$100.00\n")
	writeFile(t, input, "Walmart_sales_2026-08-19.csv",
		"SKU,Units_Sold,Gross_Sales\n2001,5,50.00\n")

	var delivered map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &delivered))
	}))
	defer srv.Close()

	p, err := New(testRegistry(t), Config{
		InputDir:   input,
		OutputDir:  output,
		Formats:    []save.Format{save.FormatCSV, save.FormatJSON},
		WebhookURL: srv.URL,
	})
	require.NoError(t, err)

	outcome, err := p.Run(context.Background(), reports.Sales)
	require.NoError(t, err)
	assert.True(t, outcome.Delivered)
	require.Len(t, outcome.Paths, 2)

	// As-of comes from the newest contributing file.
	assert.Equal(t, filepath.Join(output, "sales_report_2026-08-20.csv"), outcome.Paths[0])

	rows, err := csv.NewReader(mustOpen(t, outcome.Paths[0])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + both master SKUs
	assert.Equal(t, []string{"1001", "2026-08-20", "10", "100.00", "0", "0.00", "10", "100.00"}, rows[1])
	assert.Equal(t, []string{"2001", "2026-08-20", "0", "0.00", "5", "50.00", "5", "50.00"}, rows[2])

	assert.Equal(t, "sales", delivered["reportType"])
}

func TestRunWithEmptyInputProducesZeroReport(t *testing.T) {
	p, err := New(testRegistry(t), Config{
		InputDir:  t.TempDir(),
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)

	outcome, err := p.Run(context.Background(), reports.Inventory)
	require.NoError(t, err)
	require.Len(t, outcome.Report.Rows, 2)
	assert.True(t, outcome.Report.Rows[0].Totals[reports.MetricOnHand].IsZero())
	assert.False(t, outcome.Delivered)
}

func TestRunDryRunSkipsDelivery(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	p, err := New(testRegistry(t), Config{
		InputDir:   t.TempDir(),
		OutputDir:  t.TempDir(),
		WebhookURL: srv.URL,
		DryRun:     true,
	})
	require.NoError(t, err)

	outcome, err := p.Run(context.Background(), reports.Sales)
	require.NoError(t, err)
	assert.False(t, outcome.Delivered)
	assert.Zero(t, requests)
	assert.Len(t, outcome.Paths, 1)
}

func TestRunFailedDeliveryKeepsOutputs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	output := t.TempDir()
	p, err := New(testRegistry(t), Config{
		InputDir:   t.TempDir(),
		OutputDir:  output,
		WebhookURL: srv.URL,
	})
	require.NoError(t, err)

	outcome, err := p.Run(context.Background(), reports.Sales)
	require.Error(t, err)
	require.NotNil(t, outcome)
	require.Len(t, outcome.Paths, 1)
	_, statErr := os.Stat(outcome.Paths[0])
	assert.NoError(t, statErr)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(testRegistry(t), Config{})
	assert.Error(t, err)

	_, err = New(testRegistry(t), Config{InputDir: "in", Formats: []save.Format{save.Format(99)}})
	assert.Error(t, err)

	_, err = New(testRegistry(t), Config{InputDir: "in", WebhookURL: ""})
	assert.NoError(t, err)
}

func TestCombine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inventory_report_2026-08-19.csv",
		"sku,as_of,wfs_on_hand\n1001,2026-08-19,5\n")
	writeFile(t, dir, "inventory_report_2026-08-20.csv",
		"sku,as_of,wfs_on_hand\n1001,2026-08-20,7\n")
	writeFile(t, dir, "sales_report_2026-08-20.csv",
		"sku,as_of,amazon_units\n1001,2026-08-20,3\n")

	path, n, err := Combine(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := csv.NewReader(mustOpen(t, path)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"sku", "as_of", "wfs_on_hand"}, rows[0])
	// Oldest first.
	assert.Equal(t, "2026-08-19", rows[1][1])
	assert.Equal(t, "2026-08-20", rows[2][1])
}

func TestCombineSkipsMismatchedColumns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inventory_report_2026-08-19.csv",
		"sku,as_of,wfs_on_hand\n1001,2026-08-19,5\n")
	writeFile(t, dir, "inventory_report_2026-08-20.csv",
		"sku,as_of,wfs_on_hand,awd_on_hand\n1001,2026-08-20,7,1\n")

	_, n, err := Combine(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCombineNoFiles(t *testing.T) {
	_, _, err := Combine(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}
