package parsers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/logging"
	"github.com/agentstation/skusync/pkg/reports"
)

// column maps one output metric to the source columns summed into it.
// Channel overrides the layout channel for multi-channel extracts.
type column struct {
	metric  reports.Metric
	channel reports.ChannelID
	sources []string
}

// layout declares the tabular shape of one channel report format. The
// shared engine below does all reading; a parser is just a layout.
type layout struct {
	channel    reports.ChannelID
	reportType reports.Type
	skuColumn  string
	skipRows   int // header preamble rows before the real header
	columns    []column

	// bucketColumn routes rows of a mixed extract to channels via bucketMap;
	// rows with an unrecognized bucket are skipped and counted.
	bucketColumn string
	bucketMap    map[string]reports.ChannelID
}

// Channel implements Parser.
func (l *layout) Channel() reports.ChannelID { return l.channel }

// Type implements Parser.
func (l *layout) Type() reports.Type { return l.reportType }

// Parse implements Parser. Per-row problems are counted and skipped; only an
// unreadable stream or a header missing required columns fails the file.
func (l *layout) Parse(ctx context.Context, r io.Reader) ([]reports.QuantityRecord, *reports.Diagnostics, error) {
	log := logging.FromContext(ctx).With().Str("channel", string(l.channel)).Logger()
	diags := reports.NewDiagnostics()

	cr := newCSVReader(r)

	for i := 0; i < l.skipRows; i++ {
		if _, err := cr.Read(); err != nil {
			return nil, nil, errors.NewParseError("csv", "", fmt.Sprintf("reading preamble row %d", i+1), err)
		}
	}

	header, err := cr.Read()
	if err != nil {
		return nil, nil, errors.NewParseError("csv", "", "reading header", err)
	}
	idx, err := l.indexHeader(header)
	if err != nil {
		return nil, nil, err
	}

	var records []reports.QuantityRecord
	line := l.skipRows + 1 // header line number

	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			diags.Record(l.channel, reports.DiagnosticMalformedRow, fmt.Sprintf("line %d: %v", line, err))
			log.Warn().Int("line", line).Err(err).Msg("Skipping unreadable row")
			continue
		}

		records = append(records, l.parseRow(row, idx, line, diags, &log)...)
	}

	return records, diags, nil
}

// parseRow converts one data row into records. A bad numeric cell skips the
// whole row (one MalformedRowError diagnostic), never the file.
func (l *layout) parseRow(row []string, idx *headerIndex, line int, diags *reports.Diagnostics, log *zerolog.Logger) []reports.QuantityRecord {
	cell := func(pos int) string {
		if pos < 0 || pos >= len(row) {
			return ""
		}
		return row[pos]
	}

	rawSKU := strings.TrimSpace(cell(idx.sku))
	if rawSKU == "" {
		diags.Record(l.channel, reports.DiagnosticMissingSKU, fmt.Sprintf("line %d", line))
		return nil
	}

	// Bucket routing for mixed extracts: a row belongs to the channel its
	// bucket maps to, or is skipped so other channels' own files stay
	// authoritative.
	bucketChannel := reports.ChannelID("")
	if idx.bucket >= 0 {
		bucket := strings.TrimSpace(cell(idx.bucket))
		mapped, ok := l.bucketMap[bucket]
		if !ok {
			diags.Record(l.channel, reports.DiagnosticSkippedBucket, fmt.Sprintf("line %d: bucket %q", line, bucket))
			return nil
		}
		bucketChannel = mapped
	}

	records := make([]reports.QuantityRecord, 0, len(l.columns))
	for _, col := range l.columns {
		value := decimal.Zero
		for _, src := range col.sources {
			v, err := parseAmount(cell(idx.sources[src]))
			if err != nil {
				mrErr := errors.NewMalformedRowError(string(l.channel), line, src, err.Error(), err)
				diags.Record(l.channel, reports.DiagnosticMalformedRow, mrErr.Error())
				log.Warn().Int("line", line).Str("column", src).Err(err).Msg("Skipping malformed row")
				return nil
			}
			value = value.Add(v)
		}

		channel := l.channel
		if col.channel != "" {
			channel = col.channel
		}
		if bucketChannel != "" {
			channel = bucketChannel
		}

		records = append(records, reports.QuantityRecord{
			Channel: channel,
			RawSKU:  rawSKU,
			Metric:  col.metric,
			Value:   value,
		})
	}
	return records
}

// headerIndex holds resolved column positions for one file.
type headerIndex struct {
	sku     int
	bucket  int // -1 when unused
	sources map[string]int
}

// indexHeader resolves the layout's declared columns against the file header.
// A missing required column makes the whole file unusable.
func (l *layout) indexHeader(header []string) (*headerIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[normalizeHeader(name)] = i
	}

	idx := &headerIndex{bucket: -1, sources: make(map[string]int)}

	skuPos, ok := pos[normalizeHeader(l.skuColumn)]
	if !ok {
		return nil, errors.NewParseError("csv", "", fmt.Sprintf("missing identifier column %q", l.skuColumn), nil)
	}
	idx.sku = skuPos

	if l.bucketColumn != "" {
		bucketPos, ok := pos[normalizeHeader(l.bucketColumn)]
		if !ok {
			return nil, errors.NewParseError("csv", "", fmt.Sprintf("missing column %q", l.bucketColumn), nil)
		}
		idx.bucket = bucketPos
	}

	for _, col := range l.columns {
		for _, src := range col.sources {
			p, ok := pos[normalizeHeader(src)]
			if !ok {
				return nil, errors.NewParseError("csv", "", fmt.Sprintf("missing column %q", src), nil)
			}
			idx.sources[src] = p
		}
	}

	return idx, nil
}

// normalizeHeader canonicalizes a header cell for matching: case and
// surrounding space are insignificant.
func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// newCSVReader wraps r with BOM/UTF-16 detection before CSV parsing.
// Channel exports arrive with BOMs and mixed encodings depending on which
// tool produced them.
func newCSVReader(r io.Reader) *csv.Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1 // ragged rows are a per-row problem, not fatal
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return cr
}
