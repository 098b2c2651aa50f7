package parsers

import "github.com/agentstation/skusync/pkg/reports"

// NewAmazonSales parses the Amazon daily sales extract: units ordered and
// ordered product sales per merchant SKU.
func NewAmazonSales() Parser {
	return &layout{
		channel:    Amazon,
		reportType: reports.Sales,
		skuColumn:  "SKU",
		columns: []column{
			{metric: reports.MetricUnits, sources: []string{"Units Ordered"}},
			{metric: reports.MetricRevenue, sources: []string{"Ordered Product Sales"}},
		},
	}
}

// NewWalmartSales parses the Walmart marketplace sales extract.
func NewWalmartSales() Parser {
	return &layout{
		channel:    Walmart,
		reportType: reports.Sales,
		skuColumn:  "SKU",
		columns: []column{
			{metric: reports.MetricUnits, sources: []string{"Units_Sold"}},
			{metric: reports.MetricRevenue, sources: []string{"Gross_Sales"}},
		},
	}
}

// NewTikTokSales parses the TikTok Shop order summary extract.
func NewTikTokSales() Parser {
	return &layout{
		channel:    TikTok,
		reportType: reports.Sales,
		skuColumn:  "Seller SKU",
		columns: []column{
			{metric: reports.MetricUnits, sources: []string{"Units Sold"}},
			{metric: reports.MetricRevenue, sources: []string{"Total Revenue"}},
		},
	}
}

// NewShopifySales parses the Shopify sales-by-variant extract. Shopify
// reports mix storefront buckets in one file; rows route to a channel by the
// sales-channel column and rows from buckets other channels report
// authoritatively (for example TikTok) are skipped and counted.
func NewShopifySales() Parser {
	return &layout{
		channel:      Shopify,
		reportType:   reports.Sales,
		skuColumn:    "Product Variant SKU",
		bucketColumn: "Sales Channel",
		bucketMap: map[string]reports.ChannelID{
			"Online Store":  Shopify,
			"Shop App":      Shopify,
			"Point of Sale": Shopify,
		},
		columns: []column{
			{metric: reports.MetricUnits, sources: []string{"Net Quantity"}},
			{metric: reports.MetricRevenue, sources: []string{"Total Sales"}},
		},
	}
}

// NewFBAInventory parses the FBA inventory snapshot. On-hand units are the
// sum of available stock and stock in FC transfer.
func NewFBAInventory() Parser {
	return &layout{
		channel:    FBA,
		reportType: reports.Inventory,
		skuColumn:  "Merchant SKU",
		columns: []column{
			{metric: reports.MetricUnitsSold, sources: []string{"Units Sold Last 30 Days"}},
			{metric: reports.MetricOnHand, sources: []string{"Available", "FC transfer"}},
			{metric: reports.MetricInbound, sources: []string{"Inbound"}},
		},
	}
}

// NewAWDInventory parses the AWD inventory extract, which carries two
// preamble rows before its header. AWD tracks no sales.
func NewAWDInventory() Parser {
	return &layout{
		channel:    AWD,
		reportType: reports.Inventory,
		skuColumn:  "SKU",
		skipRows:   2,
		columns: []column{
			{metric: reports.MetricOnHand, sources: []string{"Available in AWD (units)", "Reserved in AWD (units)"}},
			{metric: reports.MetricInbound, sources: []string{"Inbound to AWD (units)"}},
		},
	}
}

// NewWFSInventory parses the Walmart Fulfillment Services inventory extract.
func NewWFSInventory() Parser {
	return &layout{
		channel:    WFS,
		reportType: reports.Inventory,
		skuColumn:  "SKU",
		columns: []column{
			{metric: reports.MetricOnHand, sources: []string{"Available units"}},
			{metric: reports.MetricInbound, sources: []string{"Inbound units"}},
		},
	}
}

// NewFlexportInventory parses the Flexport inventory extract, a one-to-many
// source: each row contributes to both the DTC (ecom) and Reserve warehouse
// channels.
func NewFlexportInventory() Parser {
	return &layout{
		channel:    DTC,
		reportType: reports.Inventory,
		skuColumn:  "SKU",
		columns: []column{
			{metric: reports.MetricUnitsSold, channel: DTC, sources: []string{"Ecom Last 30 Days"}},
			{metric: reports.MetricOnHand, channel: DTC, sources: []string{"Available in Ecom"}},
			{metric: reports.MetricInbound, channel: DTC, sources: []string{"In Transit to Ecom"}},
			{metric: reports.MetricOnHand, channel: Reserve, sources: []string{"Available in Reserve"}},
		},
	}
}
