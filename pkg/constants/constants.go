// Package constants provides shared constants used throughout the skusync codebase.
// This includes timeouts, file permissions, and formatting values that should be
// consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// WebhookTimeout is the timeout for posting a report payload to the webhook
	WebhookTimeout = 60 * time.Second

	// ParseTimeout is the timeout for parsing all source files of a single run
	ParseTimeout = 2 * time.Minute

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 10 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Limit constants define various limits and capacities
const (
	// MaxConcurrentParsers is the maximum number of source files parsed concurrently
	MaxConcurrentParsers = 4

	// DiagnosticSampleCap is the maximum number of per-kind diagnostic samples
	// retained per channel; counts are always exact
	DiagnosticSampleCap = 10
)

// Format constants
const (
	// DateFormat is the ISO date format used in filenames and report stamps
	DateFormat = "2006-01-02"
)

// Path and filename constants
const (
	// DefaultInputDir is the default directory scanned for channel report files
	DefaultInputDir = "input"

	// DefaultOutputDir is the default directory for generated reports
	DefaultOutputDir = "output"

	// DefaultMappingFile is the default path to the SKU mapping definition
	DefaultMappingFile = "skumap.yaml"

	// SalesReportBase is the base filename for the sales report outputs
	SalesReportBase = "sales_report"

	// InventoryReportBase is the base filename for the inventory report outputs
	InventoryReportBase = "inventory_report"

	// CombinedInventoryBase is the base filename for the combined historical report
	CombinedInventoryBase = "combined_inventory_report"
)
