// Package ingest reads scanner report files and normalizes their
// records into canonical findings. Parsing is deliberately forgiving:
// a source that is missing, empty, or undecodable contributes nothing
// and is logged, and a malformed record never sinks the rest of its
// batch. Scan pipelines run unattended; one corrupt report must not
// cost the findings of nine good ones.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/finding"
	"github.com/fleetscan/fleetscan/pkg/jsonutil"
)

// Format identifies the layout of a report source.
type Format string

const (
	// FormatJSON is a JSON array of records, or an object wrapping the
	// array under a "results" or "findings" key.
	FormatJSON Format = "json"

	// FormatCSV is a header-driven CSV file.
	FormatCSV Format = "csv"

	// FormatOCSF is the scanner's OCSF-flavored JSON output.
	FormatOCSF Format = "ocsf"
)

// DetectFormat guesses the format from the file name. Unrecognized
// extensions are treated as JSON, the scanner's default output mode.
func DetectFormat(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".ocsf.json"):
		return FormatOCSF
	case strings.HasSuffix(lower, ".csv"):
		return FormatCSV
	default:
		return FormatJSON
	}
}

// Source names one report file and its format.
type Source struct {
	Format Format `json:"format"`
	Path   string `json:"path"`
}

// Parser reads report sources into raw records.
type Parser struct {
	logger  *slog.Logger
	maxSize int64
}

// NewParser returns a Parser logging through logger, or slog.Default()
// when logger is nil.
func NewParser(logger *slog.Logger) *Parser {
	return &Parser{logger: orDefault(logger), maxSize: defaults.ReportSizeCap}
}

// Parse reads every source and concatenates their raw records in
// source order. It never fails: unusable sources yield nothing and are
// logged as warnings. OCSF sources are not raw-record shaped and must
// go through ParseOCSFFile instead; Parse warns and skips them.
func (p *Parser) Parse(sources []Source) []finding.Raw {
	var items []finding.Raw
	for _, src := range sources {
		switch src.Format {
		case FormatJSON:
			items = append(items, p.ParseJSONFile(src.Path)...)
		case FormatCSV:
			items = append(items, p.ParseCSVFile(src.Path)...)
		default:
			p.logger.Warn("ingest: source format not raw-record shaped, skipping",
				slog.String("format", string(src.Format)),
				slog.String("path", src.Path))
		}
	}
	return items
}

// ParseJSONFile reads one JSON report. The document may be a bare
// array of records or an object carrying the array under a "results"
// or "findings" key.
func (p *Parser) ParseJSONFile(path string) []finding.Raw {
	data, ok := p.readFile(path)
	if !ok {
		return nil
	}

	values, err := splitDocument(data)
	if err != nil {
		p.logger.Warn("ingest: undecodable JSON source",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil
	}

	raws := make([]finding.Raw, 0, len(values))
	for i, v := range values {
		var r finding.Raw
		if err := jsonutil.Unmarshal(v, &r); err != nil {
			p.logger.Warn("ingest: skipping malformed record",
				slog.String("path", path),
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		raws = append(raws, r)
	}
	return raws
}

// wrapper is the JSON-object report layout. Older scanner versions
// emit "results", newer ones "findings"; both are accepted, with
// "results" winning when both are present.
type wrapper struct {
	Results  []jsontext.Value `json:"results"`
	Findings []jsontext.Value `json:"findings"`
}

var errNotJSON = errors.New("document is neither a JSON array nor an object")

// splitDocument returns the undecoded records of a JSON report.
// An empty document, or an object without a recognized wrapper key,
// yields no records and no error.
func splitDocument(data []byte) ([]jsontext.Value, error) {
	trimmed := bytes.TrimLeftFunc(data, unicode.IsSpace)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var values []jsontext.Value
		if err := jsonutil.Unmarshal(data, &values); err != nil {
			return nil, err
		}
		return values, nil
	case '{':
		var doc wrapper
		if err := jsonutil.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		if doc.Results != nil {
			return doc.Results, nil
		}
		return doc.Findings, nil
	default:
		return nil, errNotJSON
	}
}

// ParseCSVFile reads one header-driven CSV report. Columns bind to raw
// fields by header name using the same alias names the JSON decoder
// accepts; unknown columns are ignored.
func (p *Parser) ParseCSVFile(path string) []finding.Raw {
	f, err := os.Open(path)
	if err != nil {
		p.logger.Warn("ingest: unreadable source",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil
	}
	defer f.Close()

	reader := csv.NewReader(io.LimitReader(f, p.maxSize))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			p.logger.Warn("ingest: undecodable CSV source",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return nil
	}

	var raws []finding.Raw
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.logger.Warn("ingest: skipping malformed CSV row",
				slog.String("path", path),
				slog.Int("line", line),
				slog.String("error", err.Error()))
			continue
		}

		var r finding.Raw
		for i, name := range header {
			if i >= len(record) {
				break
			}
			r.Set(name, record[i])
		}
		raws = append(raws, r)
	}
	return raws
}

// readFile loads a report with the size cap enforced during the read.
// Missing files are a normal condition (a scan may not have produced
// this output mode) and log at debug, not warning.
func (p *Parser) readFile(path string) ([]byte, bool) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			p.logger.Debug("ingest: source not present", slog.String("path", path))
		} else {
			p.logger.Warn("ingest: unreadable source",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, p.maxSize+1))
	if err != nil {
		p.logger.Warn("ingest: unreadable source",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, false
	}
	if int64(len(data)) > p.maxSize {
		p.logger.Warn("ingest: source exceeds size cap, skipping",
			slog.String("path", path),
			slog.Int64("cap_bytes", p.maxSize))
		return nil, false
	}
	return data, true
}

// orDefault returns l if non-nil, otherwise slog.Default().
func orDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
