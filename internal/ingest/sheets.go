package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsConfig holds the settings for reading a Google Sheets range.
type SheetsConfig struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TokenFile          string
	ServiceAccountPath string
	SpreadsheetID      string
	Range              string
	RetryAttempts      int
	RetryDelay         time.Duration
}

// DefaultSheetsConfig returns a SheetsConfig with sensible defaults.
func DefaultSheetsConfig() SheetsConfig {
	return SheetsConfig{
		Range:         "A:Z",
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Validate checks if the configuration is usable.
func (c *SheetsConfig) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && (c.RefreshToken != "" || c.TokenFile != "")
	hasServiceAccount := c.ServiceAccountPath != ""

	switch {
	case !hasOAuth && !hasServiceAccount:
		return fmt.Errorf("%w: no Google Sheets authentication method configured", common.ErrMissingConfig)
	case hasOAuth && hasServiceAccount:
		return fmt.Errorf("%w: multiple authentication methods configured; use either OAuth2 or service account", common.ErrInvalidConfig)
	case c.SpreadsheetID == "":
		return fmt.Errorf("%w: spreadsheet ID is required", common.ErrMissingConfig)
	case c.RetryAttempts < 0 || c.RetryDelay < 0:
		return fmt.Errorf("%w: retry settings cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

type valuesFetcher func(ctx context.Context, spreadsheetID, readRange string) ([][]any, error)

// SheetsSource reads billing rows from a Google Sheets range.
type SheetsSource struct {
	fetch  valuesFetcher
	config SheetsConfig
}

// NewSheetsSource authenticates against the Sheets API and returns a source for config.Range.
func NewSheetsSource(ctx context.Context, config SheetsConfig) (*SheetsSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	fetch := func(ctx context.Context, spreadsheetID, readRange string) ([][]any, error) {
		resp, err := srv.Spreadsheets.Values.Get(spreadsheetID, readRange).
			ValueRenderOption("UNFORMATTED_VALUE").
			DateTimeRenderOption("SERIAL_NUMBER").
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}

	return &SheetsSource{config: config, fetch: fetch}, nil
}

// Name implements Source.
func (s *SheetsSource) Name() string {
	return fmt.Sprintf("sheets:%s!%s", s.config.SpreadsheetID, s.config.Range)
}

// Read implements Source. Transient API failures are retried.
func (s *SheetsSource) Read(ctx context.Context) (Table, error) {
	var values [][]any

	retryOpts := service.RetryOptions{
		MaxAttempts:  s.config.RetryAttempts,
		InitialDelay: s.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err := common.WithRetry(ctx, func(ctx context.Context) error {
		v, err := s.fetch(ctx, s.config.SpreadsheetID, s.config.Range)
		if err != nil {
			return classifyAPIError(err)
		}
		values = v
		return nil
	}, retryOpts)
	if err != nil {
		return Table{}, err
	}

	rows := make([][]string, 0, len(values))
	for _, v := range values {
		row := make([]string, len(v))
		for i, cell := range v {
			row[i] = cellString(cell)
		}
		rows = append(rows, row)
	}

	for len(rows) > 0 && isBlankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return Table{}, nil
	}
	return Table{Header: rows[0], Rows: rows[1:]}, nil
}

func cellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 500:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return err
	}
}

// createSheetsService creates a read-only Google Sheets API service.
func createSheetsService(ctx context.Context, config SheetsConfig) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		if config.RefreshToken == "" {
			saved, err := LoadToken(config.TokenFile)
			if err != nil {
				return nil, fmt.Errorf("unable to load token from %s (run 'dossier auth sheets' first): %w", config.TokenFile, err)
			}
			token = saved
		}

		tokenSource = oauthConfig(config, "").TokenSource(ctx, token)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}
