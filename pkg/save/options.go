package save

import "io"

type Format int

// Format constants.
const (
	FormatCSV Format = iota
	FormatJSON
	FormatXLSX
)

// IsValid checks if the format is valid.
func (f Format) IsValid() bool {
	switch f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return true
	default:
		return false
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	case FormatXLSX:
		return "xlsx"
	}
	return "unknown"
}

// ParseFormat maps a format name (or file extension) to a Format.
func ParseFormat(name string) (Format, bool) {
	switch name {
	case "csv", ".csv":
		return FormatCSV, true
	case "json", ".json":
		return FormatJSON, true
	case "xlsx", ".xlsx":
		return FormatXLSX, true
	}
	return FormatCSV, false
}

// Options is the configuration for save.
type Options struct {
	dir    string
	path   string
	writer io.Writer
	format Format
}

// Dir returns the output directory for the save options.
func (s *Options) Dir() string {
	return s.dir
}

// Path returns the path for the save options.
func (s *Options) Path() string {
	return s.path
}

// Writer returns the writer for the save options.
func (s *Options) Writer() io.Writer {
	return s.writer
}

// Format returns the format for the save options.
func (s *Options) Format() Format {
	return s.format
}

// Defaults returns the default save options.
func Defaults() *Options {
	return &Options{
		dir:    "",
		path:   "",
		writer: nil,
		format: FormatCSV,
	}
}

// Apply applies the given options to the save options.
func (s *Options) Apply(opts ...Option) Options {
	for _, opt := range opts {
		opt(s)
	}
	return *s
}

// Option is a function that configures save options.
type Option func(*Options)

// WithFormat for custom output format.
func WithFormat(f Format) Option {
	return func(s *Options) {
		s.format = f
	}
}

// WithDir saves into a directory under the conventional report filename.
func WithDir(dir string) Option {
	return func(s *Options) {
		s.dir = dir
	}
}

// WithPath for an explicit output path, overriding the filename convention.
func WithPath(path string) Option {
	return func(s *Options) {
		s.path = path
	}
}

// WithWriter for custom outputs.
func WithWriter(w io.Writer) Option {
	return func(s *Options) {
		s.writer = w
	}
}
