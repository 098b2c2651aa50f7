// Package save writes finished reports to their output sinks: CSV for
// spreadsheets, JSON for downstream automation, XLSX for operators who live
// in Excel. Filenames follow the <type>_report_<date> convention so
// consecutive runs for the same day overwrite rather than accumulate.
package save

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/agentstation/skusync/pkg/constants"
	"github.com/agentstation/skusync/pkg/errors"
	"github.com/agentstation/skusync/pkg/reports"
)

// Filename returns the conventional output filename for a report.
func Filename(report *reports.Report, format Format) string {
	base := constants.SalesReportBase
	if report.Type == reports.Inventory {
		base = constants.InventoryReportBase
	}
	return fmt.Sprintf("%s_%s.%s", base, report.AsOf.Format(constants.DateFormat), format)
}

// Save writes a report in the configured format. With WithWriter the report
// goes to the writer and the returned path is empty; otherwise the target is
// WithPath, or the conventional filename under WithDir. Parent directories
// are created as needed.
func Save(report *reports.Report, opts ...Option) (string, error) {
	options := Defaults().Apply(opts...)
	if !options.Format().IsValid() {
		return "", errors.NewConfigError("save", fmt.Sprintf("unknown output format %d", options.Format()), nil)
	}

	if w := options.Writer(); w != nil {
		return "", write(report, options.Format(), w)
	}

	path := options.Path()
	if path == "" {
		path = filepath.Join(options.Dir(), Filename(report, options.Format()))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
			return "", errors.WrapIO("create", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, constants.FilePermissions)
	if err != nil {
		return "", errors.WrapIO("create", path, err)
	}
	if err := write(report, options.Format(), f); err != nil {
		f.Close()
		return "", errors.WrapIO("write", path, err)
	}
	if err := f.Close(); err != nil {
		return "", errors.WrapIO("close", path, err)
	}
	return path, nil
}

// write renders the report in one format.
func write(report *reports.Report, format Format, w io.Writer) error {
	switch format {
	case FormatCSV:
		return writeCSV(report, w)
	case FormatJSON:
		return writeJSON(report, w)
	case FormatXLSX:
		return writeXLSX(report, w)
	default:
		return errors.NewConfigError("save", fmt.Sprintf("unknown output format %d", format), nil)
	}
}

// writeCSV renders the tabular view, header first.
func writeCSV(report *reports.Report, w io.Writer) error {
	header, rows := report.Table()

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeJSON renders the record view as a pretty-printed array. Structurally
// absent cells are omitted per record, matching the webhook payload.
func writeJSON(report *reports.Report, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report.Records())
}

// writeXLSX renders the tabular view onto a single worksheet named after the
// report type, with a frozen header row.
func writeXLSX(report *reports.Report, w io.Writer) error {
	header, rows := report.Table()

	f := excelize.NewFile()
	defer f.Close()

	sheet := string(report.Type)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := setRow(f, sheet, 1, cells); err != nil {
		return err
	}
	for i, row := range rows {
		for j, v := range row {
			cells[j] = v
		}
		if err := setRow(f, sheet, i+2, cells[:len(row)]); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	return f.Write(w)
}

// setRow writes one worksheet row starting at column A.
func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
