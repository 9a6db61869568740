package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/dossier/internal/common"
	"github.com/Veraticus/dossier/internal/model"
	"github.com/spf13/viper"
)

// Config holds the resolved application settings.
type Config struct {
	Columns      model.Columns
	DatabasePath string
	OutputDir    string
	TemplatePath string
	DateFormat   string
	Sheet        string
	LogFile      string
	LogLevel     string
	LogFormat    string
	DateLayouts  []string
}

// DefaultDateLayouts are tried in order when parsing date cells.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"2-Jan-2006",
	time.RFC3339,
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	dataDir := DataDir()
	v.SetDefault("database.path", filepath.Join(dataDir, "dossier.db"))
	v.SetDefault("output.dir", "./output")
	v.SetDefault("template.path", "")
	v.SetDefault("document.date_format", "02/01/2006")
	v.SetDefault("ingest.sheet", "")
	v.SetDefault("ingest.date_layouts", DefaultDateLayouts)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", filepath.Join(dataDir, "dossier.log"))

	d := model.DefaultColumns()
	v.SetDefault("ingest.columns.plan", d.Plan)
	v.SetDefault("ingest.columns.account", d.Account)
	v.SetDefault("ingest.columns.payer", d.Payer)
	v.SetDefault("ingest.columns.invoice", d.Invoice)
	v.SetDefault("ingest.columns.amount", d.Amount)
	v.SetDefault("ingest.columns.date", d.Date)
}

// Load reads the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads settings from v, applying defaults for anything unset.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		DatabasePath: ExpandPath(v.GetString("database.path")),
		OutputDir:    ExpandPath(v.GetString("output.dir")),
		TemplatePath: ExpandPath(v.GetString("template.path")),
		DateFormat:   v.GetString("document.date_format"),
		Sheet:        v.GetString("ingest.sheet"),
		DateLayouts:  v.GetStringSlice("ingest.date_layouts"),
		LogFile:      ExpandPath(v.GetString("logging.file")),
		LogLevel:     v.GetString("logging.level"),
		LogFormat:    v.GetString("logging.format"),
		Columns: model.Columns{
			Plan:    strings.TrimSpace(v.GetString("ingest.columns.plan")),
			Account: strings.TrimSpace(v.GetString("ingest.columns.account")),
			Payer:   strings.TrimSpace(v.GetString("ingest.columns.payer")),
			Invoice: strings.TrimSpace(v.GetString("ingest.columns.invoice")),
			Amount:  strings.TrimSpace(v.GetString("ingest.columns.amount")),
			Date:    strings.TrimSpace(v.GetString("ingest.columns.date")),
		}.WithDefaults(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("%w: database.path is empty", common.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("%w: output.dir is empty", common.ErrInvalidConfig)
	}
	if len(c.DateLayouts) == 0 {
		return fmt.Errorf("%w: ingest.date_layouts is empty", common.ErrInvalidConfig)
	}
	if c.DateFormat == "" {
		return fmt.Errorf("%w: document.date_format is empty", common.ErrInvalidConfig)
	}

	seen := make(map[string]string)
	for field, name := range map[string]string{
		"plan": c.Columns.Plan, "account": c.Columns.Account, "payer": c.Columns.Payer,
		"invoice": c.Columns.Invoice, "amount": c.Columns.Amount, "date": c.Columns.Date,
	} {
		if other, dup := seen[name]; dup {
			return fmt.Errorf("%w: ingest.columns.%s and ingest.columns.%s both map to %q",
				common.ErrInvalidConfig, field, other, name)
		}
		seen[name] = field
	}
	return nil
}
