// Package parsers transforms raw channel report files into uniform quantity
// records. Each channel/report-type pair has its own column layout and metric
// semantics, implemented as one Parser behind a shared tabular engine; new
// channels are added by declaring a layout, not by branching inside a shared
// parser.
package parsers

import (
	"context"
	"fmt"
	"io"

	"github.com/agentstation/skusync/pkg/reports"
)

// Channel identifiers for the supported channels. The Flexport file
// contributes two warehouse channels (dtc, reserve) from a single extract.
const (
	Amazon  reports.ChannelID = "amazon"
	Walmart reports.ChannelID = "walmart"
	TikTok  reports.ChannelID = "tiktok"
	Shopify reports.ChannelID = "shopify"
	FBA     reports.ChannelID = "fba"
	AWD     reports.ChannelID = "awd"
	WFS     reports.ChannelID = "wfs"
	DTC     reports.ChannelID = "dtc"
	Reserve reports.ChannelID = "reserve"
)

// Parser reads one source file format into quantity records. Parsers never
// aggregate across rows and never mutate the registry; duplicate raw rows
// are emitted as separate records for the reconciler to fold.
type Parser interface {
	// Channel is the primary channel this parser reports for.
	Channel() reports.ChannelID

	// Type is the report type this parser contributes to.
	Type() reports.Type

	// Parse reads the tabular stream and returns the records it contains
	// plus per-row diagnostics (skipped and malformed rows). An error means
	// the whole file was unusable, not that a row was bad.
	Parse(ctx context.Context, r io.Reader) ([]reports.QuantityRecord, *reports.Diagnostics, error)
}

// For returns the parser for a channel/report-type pair.
func For(channel reports.ChannelID, t reports.Type) (Parser, error) {
	switch {
	case channel == Amazon && t == reports.Sales:
		return NewAmazonSales(), nil
	case channel == Walmart && t == reports.Sales:
		return NewWalmartSales(), nil
	case channel == TikTok && t == reports.Sales:
		return NewTikTokSales(), nil
	case channel == Shopify && t == reports.Sales:
		return NewShopifySales(), nil
	case channel == FBA && t == reports.Inventory:
		return NewFBAInventory(), nil
	case channel == AWD && t == reports.Inventory:
		return NewAWDInventory(), nil
	case channel == WFS && t == reports.Inventory:
		return NewWFSInventory(), nil
	case channel == DTC && t == reports.Inventory:
		return NewFlexportInventory(), nil
	default:
		return nil, fmt.Errorf("no parser for channel %q %s report", channel, t)
	}
}
