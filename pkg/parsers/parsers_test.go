package parsers

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/reports"
)

// record finds the single record for (channel, raw, metric), failing the test
// when it is absent or duplicated.
func record(t *testing.T, recs []reports.QuantityRecord, channel reports.ChannelID, raw string, metric reports.Metric) reports.QuantityRecord {
	t.Helper()
	var found []reports.QuantityRecord
	for _, r := range recs {
		if r.Channel == channel && r.RawSKU == raw && r.Metric == metric {
			found = append(found, r)
		}
	}
	require.Len(t, found, 1, "want exactly one record for %s/%s/%s", channel, raw, metric)
	return found[0]
}

func TestAmazonSalesParse(t *testing.T) {
	input := strings.Join([]string{
		"SKU,Units Ordered,Ordered Product Sales",
		`1001,10,"$199.90"`,
		`3001s,5,"$99,95"`,
		"2001,0,$0.00",
	}, "\n")

	p := NewAmazonSales()
	assert.Equal(t, Amazon, p.Channel())
	assert.Equal(t, reports.Sales, p.Type())

	recs, diags, err := p.Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, diags.Empty())
	require.Len(t, recs, 6) // 3 rows x 2 metrics

	assert.True(t, record(t, recs, Amazon, "1001", reports.MetricUnits).Value.Equal(decimal.NewFromInt(10)))
	assert.True(t, record(t, recs, Amazon, "1001", reports.MetricRevenue).Value.Equal(decimal.RequireFromString("199.90")))
	// Raw identifier passes through untouched; mapping is the registry's job.
	assert.Equal(t, "3001s", record(t, recs, Amazon, "3001s", reports.MetricUnits).RawSKU)
}

func TestParseSkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"SKU,Units Ordered,Ordered Product Sales",
		"1001,ten,$5.00",
		"2001,3,$30.00",
	}, "\n")

	recs, diags, err := NewAmazonSales().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	// The malformed row is dropped whole: no revenue record survives either.
	require.Len(t, recs, 2)
	assert.Equal(t, "2001", recs[0].RawSKU)
	assert.Equal(t, 1, diags.Count(Amazon, reports.DiagnosticMalformedRow))
}

func TestParseSkipsMissingIdentifier(t *testing.T) {
	input := strings.Join([]string{
		"SKU,Units Ordered,Ordered Product Sales",
		",5,$50.00",
		"   ,1,$1.00",
		"2001,3,$30.00",
	}, "\n")

	recs, diags, err := NewAmazonSales().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, diags.Count(Amazon, reports.DiagnosticMissingSKU))
}

func TestParseDoesNotAggregateDuplicates(t *testing.T) {
	// Two warehouse rows for one SKU stay two records; folding is the
	// reconciler's responsibility.
	input := strings.Join([]string{
		"SKU,Available units,Inbound units",
		"1001,5,2",
		"1001,7,0",
	}, "\n")

	recs, diags, err := NewWFSInventory().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, diags.Empty())
	require.Len(t, recs, 4)
}

func TestParseMissingColumnFailsFile(t *testing.T) {
	input := "SKU,Wrong Column\n1001,5\n"

	_, _, err := NewWFSInventory().Parse(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParseHeaderMatchingIsCaseInsensitive(t *testing.T) {
	input := strings.Join([]string{
		"sku , AVAILABLE UNITS ,inbound units",
		"1001,5,2",
	}, "\n")

	recs, _, err := NewWFSInventory().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestParseHandlesUTF8BOM(t *testing.T) {
	input := "\ufeff" + "SKU,Available units,Inbound units\n1001,5,2\n"

	recs, _, err := NewWFSInventory().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "1001", recs[0].RawSKU)
}

func TestAWDSkipsPreamble(t *testing.T) {
	input := strings.Join([]string{
		"AWD Inventory Report",
		"Generated 2026-08-20",
		"SKU,Available in AWD (units),Reserved in AWD (units),Inbound to AWD (units)",
		"1001,10,2,5",
	}, "\n")

	recs, diags, err := NewAWDInventory().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, diags.Empty())

	// Available and reserved sum into a single on-hand record.
	assert.True(t, record(t, recs, AWD, "1001", reports.MetricOnHand).Value.Equal(decimal.NewFromInt(12)))
	assert.True(t, record(t, recs, AWD, "1001", reports.MetricInbound).Value.Equal(decimal.NewFromInt(5)))
}

func TestFBASumsOnHandColumns(t *testing.T) {
	input := strings.Join([]string{
		"Merchant SKU,Units Sold Last 30 Days,Available,FC transfer,Inbound",
		"1001s,30,12,3,20",
	}, "\n")

	recs, _, err := NewFBAInventory().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, record(t, recs, FBA, "1001s", reports.MetricOnHand).Value.Equal(decimal.NewFromInt(15)))
	assert.True(t, record(t, recs, FBA, "1001s", reports.MetricUnitsSold).Value.Equal(decimal.NewFromInt(30)))
}

func TestFlexportEmitsTwoChannels(t *testing.T) {
	input := strings.Join([]string{
		"SKU,Ecom Last 30 Days,Available in Ecom,In Transit to Ecom,Available in Reserve",
		"1001,25,40,10,100",
	}, "\n")

	recs, diags, err := NewFlexportInventory().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, diags.Empty())
	require.Len(t, recs, 4)

	assert.True(t, record(t, recs, DTC, "1001", reports.MetricOnHand).Value.Equal(decimal.NewFromInt(40)))
	assert.True(t, record(t, recs, Reserve, "1001", reports.MetricOnHand).Value.Equal(decimal.NewFromInt(100)))
}

func TestShopifyBucketRouting(t *testing.T) {
	input := strings.Join([]string{
		"Product Variant SKU,Sales Channel,Net Quantity,Total Sales",
		"1001,Online Store,4,$80.00",
		"1001,Shop App,1,$20.00",
		"2001,TikTok,9,$90.00",
	}, "\n")

	recs, diags, err := NewShopifySales().Parse(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	// TikTok rows are skipped: the TikTok extract is authoritative for them.
	require.Len(t, recs, 4)
	assert.Equal(t, 1, diags.Count(Shopify, reports.DiagnosticSkippedBucket))
	for _, r := range recs {
		assert.Equal(t, Shopify, r.Channel)
	}
}

func TestForSelectsParsers(t *testing.T) {
	tests := []struct {
		channel reports.ChannelID
		t       reports.Type
		ok      bool
	}{
		{Amazon, reports.Sales, true},
		{Walmart, reports.Sales, true},
		{TikTok, reports.Sales, true},
		{Shopify, reports.Sales, true},
		{FBA, reports.Inventory, true},
		{AWD, reports.Inventory, true},
		{WFS, reports.Inventory, true},
		{DTC, reports.Inventory, true},
		{Amazon, reports.Inventory, false},
		{"ebay", reports.Sales, false},
	}

	for _, tt := range tests {
		p, err := For(tt.channel, tt.t)
		if tt.ok {
			require.NoError(t, err, "%s/%s", tt.channel, tt.t)
			assert.Equal(t, tt.t, p.Type())
		} else {
			assert.Error(t, err, "%s/%s", tt.channel, tt.t)
		}
	}
}

func TestParseCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := "SKU,Available units,Inbound units\n1001,5,2\n"
	_, _, err := NewWFSInventory().Parse(ctx, strings.NewReader(input))
	assert.ErrorIs(t, err, context.Canceled)
}
