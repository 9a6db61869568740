package config

import (
	"os"

	"github.com/Veraticus/dossier/internal/ingest"
	"github.com/spf13/viper"
)

// LoadSheetsConfig resolves Google Sheets settings from v and the environment.
// Precedence is viper (config file or DOSSIER_ env vars), then the
// GOOGLE_SHEETS_* variables, then defaults. The result is not validated;
// callers that need credentials check it with Validate.
func LoadSheetsConfig(v *viper.Viper) ingest.SheetsConfig {
	config := ingest.DefaultSheetsConfig()

	if s := v.GetString("sheets.service_account_path"); s != "" {
		config.ServiceAccountPath = ExpandPath(s)
	}
	if s := v.GetString("sheets.token_file"); s != "" {
		config.TokenFile = ExpandPath(s)
	}
	config.ClientID = v.GetString("sheets.client_id")
	config.ClientSecret = v.GetString("sheets.client_secret")
	config.RefreshToken = v.GetString("sheets.refresh_token")
	config.SpreadsheetID = v.GetString("sheets.spreadsheet_id")
	if s := v.GetString("sheets.range"); s != "" {
		config.Range = s
	}
	if n := v.GetInt("sheets.retry_attempts"); n > 0 {
		config.RetryAttempts = n
	}
	if d := v.GetDuration("sheets.retry_delay"); d > 0 {
		config.RetryDelay = d
	}

	if config.ServiceAccountPath == "" {
		if s := os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"); s != "" {
			config.ServiceAccountPath = ExpandPath(s)
		}
	}
	if config.ClientID == "" {
		config.ClientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	if config.ClientSecret == "" {
		config.ClientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if config.RefreshToken == "" {
		config.RefreshToken = os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")
	}
	if config.SpreadsheetID == "" {
		config.SpreadsheetID = os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")
	}

	return config
}
