// Package discovery scans the input directory for channel report files.
// Files follow the <Prefix>_<reporttype>_<YYYY-MM-DD>.csv drop convention;
// when a channel has several drops, only the newest date is used. Anything
// that does not match the convention is ignored, so the input directory can
// hold scratch files without breaking runs.
package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/skusync/pkg/constants"
	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/parsers"
	"github.com/agentstation/skusync/pkg/reports"
)

// SourceFile is one discovered channel report file.
type SourceFile struct {
	Channel reports.ChannelID
	Type    reports.Type
	Date    time.Time
	Path    string
	Name    string
}

// filePattern matches <Prefix>_<reporttype>_<YYYY-MM-DD>.csv.
var filePattern = regexp.MustCompile(`(?i)^([a-z]+)_(sales|inventory)_(\d{4}-\d{2}-\d{2})\.csv$`)

// channelForPrefix maps filename prefixes onto parser channels. The Flexport
// extract is keyed by the dtc channel; its parser emits reserve records too.
var channelForPrefix = map[string]reports.ChannelID{
	"amazon":   parsers.Amazon,
	"walmart":  parsers.Walmart,
	"tiktok":   parsers.TikTok,
	"shopify":  parsers.Shopify,
	"fba":      parsers.FBA,
	"awd":      parsers.AWD,
	"wfs":      parsers.WFS,
	"flexport": parsers.DTC,
}

// Scan finds the newest report file per channel for one report type. A
// missing channel is normal (the run proceeds zero-filled); an unreadable
// directory is not.
func Scan(dir string, t reports.Type, log *zerolog.Logger) ([]SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapIO("read", dir, err)
	}

	latest := make(map[reports.ChannelID]SourceFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		sf, ok := match(dir, entry.Name())
		if !ok {
			log.Debug().Str("file", entry.Name()).Msg("Ignoring file outside drop convention")
			continue
		}
		if sf.Type != t {
			continue
		}
		if prev, seen := latest[sf.Channel]; !seen || sf.Date.After(prev.Date) {
			latest[sf.Channel] = sf
		}
	}

	files := make([]SourceFile, 0, len(latest))
	for _, sf := range latest {
		files = append(files, sf)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Channel < files[j].Channel })

	log.Info().
		Str("dir", dir).
		Str("report", string(t)).
		Int("files", len(files)).
		Msg("Discovered source files")
	return files, nil
}

// match parses one filename against the drop convention.
func match(dir, name string) (SourceFile, bool) {
	m := filePattern.FindStringSubmatch(name)
	if m == nil {
		return SourceFile{}, false
	}

	channel, ok := channelForPrefix[strings.ToLower(m[1])]
	if !ok {
		return SourceFile{}, false
	}
	reportType := reports.Type(strings.ToLower(m[2]))
	// A prefix paired with the wrong report type (amazon_inventory) is as
	// unusable as an unknown prefix; ignore it rather than abort the run.
	if _, err := parsers.For(channel, reportType); err != nil {
		return SourceFile{}, false
	}
	date, err := time.Parse(constants.DateFormat, m[3])
	if err != nil {
		return SourceFile{}, false
	}

	return SourceFile{
		Channel: channel,
		Type:    reportType,
		Date:    date,
		Path:    filepath.Join(dir, name),
		Name:    name,
	}, true
}
