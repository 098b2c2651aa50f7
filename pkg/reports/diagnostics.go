package reports

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentstation/skusync/pkg/constants"
)

// DiagnosticKind classifies a recoverable per-row problem.
type DiagnosticKind string

// Diagnostic kinds. Per-row problems never abort a file or a run; they are
// counted here and surfaced alongside the successful output.
const (
	DiagnosticUnmapped        DiagnosticKind = "unmapped_identifier"
	DiagnosticMalformedRow    DiagnosticKind = "malformed_row"
	DiagnosticInvalidQuantity DiagnosticKind = "invalid_quantity"
	DiagnosticMissingSKU      DiagnosticKind = "missing_identifier"
	DiagnosticSkippedBucket   DiagnosticKind = "skipped_bucket"
)

// Diagnostics is the per-run summary of skipped rows and dropped records,
// counted by kind per channel. Counts are exact; a bounded number of sample
// messages is kept per kind for operator context.
type Diagnostics struct {
	counts  map[ChannelID]map[DiagnosticKind]int
	samples map[DiagnosticKind][]string
}

// NewDiagnostics returns an empty diagnostics summary.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{
		counts:  make(map[ChannelID]map[DiagnosticKind]int),
		samples: make(map[DiagnosticKind][]string),
	}
}

// Record counts one occurrence of kind for the channel, keeping the sample
// message if the per-kind cap has not been reached.
func (d *Diagnostics) Record(channel ChannelID, kind DiagnosticKind, sample string) {
	byKind, ok := d.counts[channel]
	if !ok {
		byKind = make(map[DiagnosticKind]int)
		d.counts[channel] = byKind
	}
	byKind[kind]++

	if sample != "" && len(d.samples[kind]) < constants.DiagnosticSampleCap {
		d.samples[kind] = append(d.samples[kind], sample)
	}
}

// Merge folds another summary into this one.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	for channel, byKind := range other.counts {
		for kind, n := range byKind {
			dst, ok := d.counts[channel]
			if !ok {
				dst = make(map[DiagnosticKind]int)
				d.counts[channel] = dst
			}
			dst[kind] += n
		}
	}
	for kind, samples := range other.samples {
		for _, s := range samples {
			if len(d.samples[kind]) >= constants.DiagnosticSampleCap {
				break
			}
			d.samples[kind] = append(d.samples[kind], s)
		}
	}
}

// Count returns the number of occurrences of kind on the channel.
func (d *Diagnostics) Count(channel ChannelID, kind DiagnosticKind) int {
	return d.counts[channel][kind]
}

// CountKind returns the number of occurrences of kind across all channels.
func (d *Diagnostics) CountKind(kind DiagnosticKind) int {
	total := 0
	for _, byKind := range d.counts {
		total += byKind[kind]
	}
	return total
}

// Total returns the number of recorded problems across all channels and kinds.
func (d *Diagnostics) Total() int {
	total := 0
	for _, byKind := range d.counts {
		for _, n := range byKind {
			total += n
		}
	}
	return total
}

// Empty reports whether nothing has been recorded.
func (d *Diagnostics) Empty() bool {
	return d.Total() == 0
}

// Samples returns the retained sample messages for a kind.
func (d *Diagnostics) Samples(kind DiagnosticKind) []string {
	return d.samples[kind]
}

// Summary returns a JSON-ready view of the counts, keyed by channel then kind.
func (d *Diagnostics) Summary() map[string]map[string]int {
	out := make(map[string]map[string]int, len(d.counts))
	for channel, byKind := range d.counts {
		m := make(map[string]int, len(byKind))
		for kind, n := range byKind {
			m[string(kind)] = n
		}
		out[string(channel)] = m
	}
	return out
}

// String renders a compact, deterministic one-line summary for logs.
func (d *Diagnostics) String() string {
	if d.Empty() {
		return "no diagnostics"
	}

	channels := make([]string, 0, len(d.counts))
	for channel := range d.counts {
		channels = append(channels, string(channel))
	}
	sort.Strings(channels)

	var parts []string
	for _, channel := range channels {
		byKind := d.counts[ChannelID(channel)]
		kinds := make([]string, 0, len(byKind))
		for kind := range byKind {
			kinds = append(kinds, string(kind))
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			parts = append(parts, fmt.Sprintf("%s/%s=%d", channel, kind, byKind[DiagnosticKind(kind)]))
		}
	}
	return strings.Join(parts, " ")
}
