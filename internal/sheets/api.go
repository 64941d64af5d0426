package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/HansLove/HouzeMaster-front/internal/httpx"
	"github.com/HansLove/HouzeMaster-front/internal/property"
)

// DefaultAPIBaseURL is the Sheets v4 REST root.
const DefaultAPIBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"

// APIConfig identifies a sheet range and how to authenticate to it.
type APIConfig struct {
	SpreadsheetID string
	Range         string
	APIKey        string
	AccessToken   string
	BaseURL       string
}

// APISource reads the listings range through the Sheets API values
// endpoint. It yields the same records and errors as CSVSource.
type APISource struct {
	cfg  APIConfig
	opts Options
}

// NewAPISource creates a Sheets API source.
func NewAPISource(cfg APIConfig, opts Options) (*APISource, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if cfg.APIKey == "" && cfg.AccessToken == "" {
		return nil, fmt.Errorf("an api key or access token is required")
	}
	if cfg.Range == "" {
		cfg.Range = "listings"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAPIBaseURL
	}
	return &APISource{cfg: cfg, opts: opts.withDefaults()}, nil
}

// Name identifies the source in logs.
func (s *APISource) Name() string {
	return "api"
}

// valuesResponse is the body of spreadsheets.values.get.
type valuesResponse struct {
	Range          string              `json:"range"`
	MajorDimension string              `json:"majorDimension"`
	Values         [][]json.RawMessage `json:"values"`
}

// Fetch reads the configured range. The first row is the header.
func (s *APISource) Fetch(ctx context.Context) ([]property.SourceRecord, error) {
	endpoint := s.endpoint()

	header := http.Header{}
	if s.cfg.AccessToken != "" {
		header.Set("Authorization", "Bearer "+s.cfg.AccessToken)
	}
	header.Set("Accept", "application/json")

	resp, err := httpx.Get(ctx, s.opts.HTTPClient, endpoint, header, s.opts.Retry)
	if err != nil {
		return nil, classify(s.redacted(endpoint), err)
	}

	result, err := parseValues(resp.Body)
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

func (s *APISource) endpoint() string {
	params := url.Values{
		"majorDimension": {"ROWS"},
	}
	if s.cfg.APIKey != "" {
		params.Set("key", s.cfg.APIKey)
	}
	return fmt.Sprintf("%s/%s/values/%s?%s",
		strings.TrimSuffix(s.cfg.BaseURL, "/"),
		url.PathEscape(s.cfg.SpreadsheetID),
		url.PathEscape(s.cfg.Range),
		params.Encode(),
	)
}

// redacted hides the api key in errors and logs.
func (s *APISource) redacted(endpoint string) string {
	if s.cfg.APIKey == "" {
		return endpoint
	}
	return strings.ReplaceAll(endpoint, url.QueryEscape(s.cfg.APIKey), "REDACTED")
}

// parseValues turns a values response into records. The API drops trailing
// empty cells, so short rows are normal here.
func parseValues(body []byte) (*ParseResult, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ParseError{Reason: "empty body"}
	}

	var vr valuesResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, &ParseError{Reason: "decoding values response", Err: err}
	}
	if len(vr.Values) == 0 {
		return nil, &ParseError{Reason: "missing header row"}
	}

	header := cellStrings(vr.Values[0])
	if blank(header) {
		return nil, &ParseError{Reason: "missing header row"}
	}

	rows := make([]numberedRow, 0, len(vr.Values)-1)
	for i, raw := range vr.Values[1:] {
		// Sheet rows are 1-based and row 1 is the header.
		rows = append(rows, numberedRow{line: i + 2, cells: cellStrings(raw)})
	}
	return buildRecords(header, rows, false), nil
}

// cellStrings renders each JSON cell as the text a user would see.
func cellStrings(raw []json.RawMessage) []string {
	cells := make([]string, len(raw))
	for i, c := range raw {
		var s string
		if err := json.Unmarshal(c, &s); err == nil {
			cells[i] = s
			continue
		}
		cells[i] = strings.TrimSpace(string(c))
		if cells[i] == "null" {
			cells[i] = ""
		}
	}
	return cells
}
