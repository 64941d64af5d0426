// Package sheets reads the listings spreadsheet, either as a published CSV
// export or through the Sheets API, and coerces its rows into records.
package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/HansLove/HouzeMaster-front/internal/httpx"
	"github.com/HansLove/HouzeMaster-front/internal/property"
)

// DefaultCSVURL is the published CSV export of the listings sheet.
const DefaultCSVURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vTcC2iDfeGYUXk8W6iZiQ7VtQlI3zXxn7V2puxu12bAx7wWXc-r12W518YHVxLsZj7vaTfgUmL0YJBp/pub?gid=0&single=true&output=csv"

// Warning describes a row that was skipped or read partially.
type Warning struct {
	Line    int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: %s", w.Line, w.Message)
}

// ParseResult holds the records that could be read and the problems found.
type ParseResult struct {
	Records  []property.SourceRecord
	Warnings []Warning
}

// Options configures a source. Zero values get defaults.
type Options struct {
	HTTPClient *http.Client
	Retry      httpx.RetryConfig
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = httpx.DefaultRetryConfig()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// CSVSource fetches the published CSV export.
type CSVSource struct {
	url  string
	opts Options
}

// NewCSVSource creates a source for the CSV export at url.
func NewCSVSource(url string, opts Options) (*CSVSource, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("csv url is required")
	}
	return &CSVSource{url: url, opts: opts.withDefaults()}, nil
}

// Name identifies the source in logs.
func (s *CSVSource) Name() string {
	return "csv"
}

// Fetch downloads and parses the sheet. Row-level problems are logged and
// skipped; only transport, status and whole-body failures are returned.
func (s *CSVSource) Fetch(ctx context.Context) ([]property.SourceRecord, error) {
	header := http.Header{}
	header.Set("Cache-Control", "max-age=300")
	header.Set("Accept", "text/csv, text/plain")

	resp, err := httpx.Get(ctx, s.opts.HTTPClient, s.url, header, s.opts.Retry)
	if err != nil {
		return nil, classify(s.url, err)
	}

	result, err := Parse(resp.Body)
	if err != nil {
		return nil, err
	}
	logWarnings(s.opts.Logger, result.Warnings)

	s.opts.Logger.Debug("parsed sheet",
		zap.String("source", s.Name()),
		zap.Int("records", len(result.Records)),
		zap.Int("warnings", len(result.Warnings)),
	)
	return result.Records, nil
}

// Parse reads delimited text with a header row. It fails only when the
// body is not tabular text at all.
func Parse(body []byte) (*ParseResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ParseError{Reason: "empty body"}
	}
	if !utf8.Valid(body) || bytes.IndexByte(body, 0) >= 0 {
		return nil, &ParseError{Reason: "body is not text"}
	}
	if looksLikeHTML(body) {
		return nil, &ParseError{Reason: "received an HTML page instead of CSV"}
	}

	lines := lineOffsets(body)
	r := newReader(body)

	header, err := r.Read()
	if err != nil {
		return nil, &ParseError{Reason: "reading header row", Err: err}
	}
	if blank(header) {
		return nil, &ParseError{Reason: "missing header row"}
	}

	// base is the number of lines before the current reader's first line.
	base := 0
	var rows []numberedRow
	var warnings []Warning
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return nil, &ParseError{Reason: "reading rows", Err: err}
			}
			line := base + perr.StartLine
			if row, ok := bareQuoteRow(body, lines, line, perr); ok {
				rows = append(rows, row)
				warnings = append(warnings, Warning{Line: line, Message: "stray quote read literally"})
			} else {
				warnings = append(warnings, Warning{Line: line, Message: perr.Err.Error() + "; row skipped"})
			}
			// Resume on the line after the broken record started so one
			// unbalanced quote does not swallow the rest of the sheet.
			r, base = resumeAt(body, lines, line)
			continue
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, numberedRow{line: base + line, cells: rec})
	}

	result := buildRecords(header, rows, true)
	result.Warnings = append(warnings, result.Warnings...)
	return result, nil
}

func newReader(body []byte) *csv.Reader {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	return r
}

// lineOffsets returns the byte offset at which each line starts.
func lineOffsets(body []byte) []int {
	offsets := []int{0}
	for i, b := range body {
		if b == '\n' && i+1 < len(body) {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// resumeAt returns a reader positioned on the line after line, and the
// number of lines that precede it.
func resumeAt(body []byte, lines []int, line int) (*csv.Reader, int) {
	if line >= len(lines) {
		return newReader(nil), line
	}
	return newReader(body[lines[line]:]), line
}

// bareQuoteRow rereads a single-line record whose only problem is a quote
// inside an unquoted field, treating the quote as text.
func bareQuoteRow(body []byte, lines []int, line int, perr *csv.ParseError) (numberedRow, bool) {
	if !errors.Is(perr.Err, csv.ErrBareQuote) || perr.StartLine != perr.Line || line > len(lines) {
		return numberedRow{}, false
	}
	text := body[lines[line-1]:]
	if line < len(lines) {
		text = body[lines[line-1]:lines[line]]
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	cells, err := r.Read()
	if err != nil {
		return numberedRow{}, false
	}
	return numberedRow{line: line, cells: cells}, true
}

type numberedRow struct {
	line  int
	cells []string
}

// buildRecords coerces rows against header. With strictWidth, rows whose
// width differs from the header are kept but reported.
func buildRecords(header []string, rows []numberedRow, strictWidth bool) *ParseResult {
	result := &ParseResult{Records: []property.SourceRecord{}}
	for _, row := range rows {
		if blank(row.cells) {
			continue
		}
		switch {
		case len(row.cells) > len(header):
			result.Warnings = append(result.Warnings, Warning{
				Line:    row.line,
				Message: fmt.Sprintf("too many fields: got %d, header has %d", len(row.cells), len(header)),
			})
		case strictWidth && len(row.cells) < len(header):
			result.Warnings = append(result.Warnings, Warning{
				Line:    row.line,
				Message: fmt.Sprintf("too few fields: got %d, header has %d", len(row.cells), len(header)),
			})
		}
		result.Records = append(result.Records, property.FromRow(header, row.cells))
	}
	return result
}

func classify(url string, err error) error {
	var herr *httpx.HTTPError
	if errors.As(err, &herr) {
		return &NetworkError{URL: url, StatusCode: herr.StatusCode}
	}
	return &FetchError{URL: url, Err: err}
}

func logWarnings(logger *zap.Logger, warnings []Warning) {
	for _, w := range warnings {
		logger.Warn("sheet row warning", zap.Int("line", w.Line), zap.String("warning", w.Message))
	}
}

func looksLikeHTML(body []byte) bool {
	head := strings.ToLower(string(bytes.TrimSpace(body[:min(len(body), 64)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
