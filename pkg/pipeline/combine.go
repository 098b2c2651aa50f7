package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/agentstation/skusync/pkg/constants"
	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/logging"
)

// inventoryFilePattern matches previously generated inventory report CSVs.
var inventoryFilePattern = regexp.MustCompile(`^` + constants.InventoryReportBase + `_(\d{4}-\d{2}-\d{2})\.csv$`)

// Combine concatenates every inventory report CSV in dir into one historical
// CSV, oldest first, under a single header. A file whose header differs from
// the first (the registry changed between runs) is skipped with a warning
// rather than corrupting the combined output. Returns the combined path and
// how many files contributed.
func Combine(ctx context.Context, dir string) (string, int, error) {
	log := logging.FromContext(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, errors.WrapIO("read", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && inventoryFilePattern.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", 0, errors.NewIOError("read", dir, errors.New("no inventory report files to combine"))
	}
	// Date-stamped names sort chronologically.
	sort.Strings(names)

	target := filepath.Join(dir, constants.CombinedInventoryBase+".csv")
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.FilePermissions)
	if err != nil {
		return "", 0, errors.WrapIO("create", target, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	var header []string
	combined := 0

	for _, name := range names {
		path := filepath.Join(dir, name)
		rows, err := readCSV(path)
		if err != nil {
			return "", 0, err
		}
		if len(rows) == 0 {
			continue
		}

		if header == nil {
			header = rows[0]
			if err := w.Write(header); err != nil {
				return "", 0, errors.WrapIO("write", target, err)
			}
		} else if !equalHeader(header, rows[0]) {
			log.Warn().Str("file", name).Msg("Skipping report with mismatched columns")
			continue
		}

		for _, row := range rows[1:] {
			if err := w.Write(row); err != nil {
				return "", 0, errors.WrapIO("write", target, err)
			}
		}
		combined++
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", 0, errors.WrapIO("write", target, err)
	}
	if err := out.Close(); err != nil {
		return "", 0, errors.WrapIO("close", target, err)
	}

	log.Info().
		Str("path", target).
		Int("files", combined).
		Msg("Combined inventory history")
	return target, combined, nil
}

// readCSV loads one CSV file whole.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.WrapParse("csv", path, err)
	}
	return rows, nil
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
