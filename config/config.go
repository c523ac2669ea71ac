package config

import (
	"fmt"
	"os"
	"strings"

	"virtual-ward-intake/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                  string `mapstructure:"PORT"`
	Env                   string `mapstructure:"ENV"`
	Sandbox               bool   `mapstructure:"SANDBOX"`
	GoogleCredentialsJSON string `mapstructure:"GOOGLE_CREDENTIALS_JSON"`
	GoogleCredentialsFile string `mapstructure:"GOOGLE_CREDENTIALS_FILE"`
	SpreadsheetName       string `mapstructure:"SPREADSHEET_NAME"`
	SpreadsheetID         string `mapstructure:"SPREADSHEET_ID"`
	SheetName             string `mapstructure:"SHEET_NAME"`
	DriveFolderID         string `mapstructure:"DRIVE_FOLDER_ID"`
	TempDir               string `mapstructure:"TEMP_DIR"`
	AllowDuplicateHN      bool   `mapstructure:"ALLOW_DUPLICATE_HN"`
	AppendAttempts        int    `mapstructure:"APPEND_ATTEMPTS"`
	RetryBackoffMS        int    `mapstructure:"RETRY_BACKOFF_MS"`
	Compensation          string `mapstructure:"COMPENSATION"`
	JournalPath           string `mapstructure:"JOURNAL_PATH"`
	MaxUploadMB           int    `mapstructure:"MAX_UPLOAD_MB"`

	ColumnHN         string `mapstructure:"COLUMN_HN"`
	ColumnBP         string `mapstructure:"COLUMN_BP"`
	ColumnHR         string `mapstructure:"COLUMN_HR"`
	ColumnO2         string `mapstructure:"COLUMN_O2"`
	ColumnFileName   string `mapstructure:"COLUMN_FILE_NAME"`
	ColumnFileSize   string `mapstructure:"COLUMN_FILE_SIZE"`
	ColumnUploadTime string `mapstructure:"COLUMN_UPLOAD_TIME"`
	ColumnLink       string `mapstructure:"COLUMN_LINK"`
}

var keys = []string{
	"PORT", "ENV", "SANDBOX",
	"GOOGLE_CREDENTIALS_JSON", "GOOGLE_CREDENTIALS_FILE",
	"SPREADSHEET_NAME", "SPREADSHEET_ID", "SHEET_NAME", "DRIVE_FOLDER_ID",
	"TEMP_DIR", "ALLOW_DUPLICATE_HN", "APPEND_ATTEMPTS", "RETRY_BACKOFF_MS",
	"COMPENSATION", "JOURNAL_PATH", "MAX_UPLOAD_MB",
	"COLUMN_HN", "COLUMN_BP", "COLUMN_HR", "COLUMN_O2",
	"COLUMN_FILE_NAME", "COLUMN_FILE_SIZE", "COLUMN_UPLOAD_TIME", "COLUMN_LINK",
}

// Load reads envFile if it exists, then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	cols := models.DefaultColumns()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("SANDBOX", false)
	v.SetDefault("SPREADSHEET_NAME", "ข้อมูลผู้ป่วย_Virtual_Ward_Clinic")
	v.SetDefault("SHEET_NAME", "Form_Records")
	v.SetDefault("TEMP_DIR", os.TempDir())
	v.SetDefault("ALLOW_DUPLICATE_HN", true)
	v.SetDefault("APPEND_ATTEMPTS", 3)
	v.SetDefault("RETRY_BACKOFF_MS", 500)
	v.SetDefault("COMPENSATION", "journal")
	v.SetDefault("JOURNAL_PATH", "intake-journal.db")
	v.SetDefault("MAX_UPLOAD_MB", 20)
	v.SetDefault("COLUMN_HN", cols.HN)
	v.SetDefault("COLUMN_BP", cols.BP)
	v.SetDefault("COLUMN_HR", cols.HR)
	v.SetDefault("COLUMN_O2", cols.O2)
	v.SetDefault("COLUMN_FILE_NAME", cols.FileName)
	v.SetDefault("COLUMN_FILE_SIZE", cols.FileSize)
	v.SetDefault("COLUMN_UPLOAD_TIME", cols.UploadTime)
	v.SetDefault("COLUMN_LINK", cols.Link)

	// Bind explicitly so Unmarshal sees keys that have no default.
	for _, k := range keys {
		v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) Columns() models.Columns {
	return models.Columns{
		HN:         c.ColumnHN,
		BP:         c.ColumnBP,
		HR:         c.ColumnHR,
		O2:         c.ColumnO2,
		FileName:   c.ColumnFileName,
		FileSize:   c.ColumnFileSize,
		UploadTime: c.ColumnUploadTime,
		Link:       c.ColumnLink,
	}
}

// CredentialsJSON returns the inline key, if any.
func (c *Config) CredentialsJSON() []byte {
	if strings.TrimSpace(c.GoogleCredentialsJSON) == "" {
		return nil
	}
	return []byte(c.GoogleCredentialsJSON)
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// Validate checks the configuration. Sandbox mode runs on in-memory
// stores and needs no Google settings.
func (c *Config) Validate() error {
	if err := c.Columns().Validate(); err != nil {
		return err
	}
	if c.AppendAttempts < 1 {
		return fmt.Errorf("APPEND_ATTEMPTS must be at least 1, got %d", c.AppendAttempts)
	}
	switch strings.ToLower(strings.TrimSpace(c.Compensation)) {
	case "journal", "delete":
	default:
		return fmt.Errorf("COMPENSATION must be \"journal\" or \"delete\", got %q", c.Compensation)
	}
	if c.MaxUploadMB < 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must not be negative")
	}
	if c.SheetName == "" {
		return fmt.Errorf("SHEET_NAME is required")
	}

	if c.Sandbox {
		return nil
	}

	if c.CredentialsJSON() == nil && c.GoogleCredentialsFile == "" {
		return fmt.Errorf("GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE is required")
	}
	if c.SpreadsheetID == "" && c.SpreadsheetName == "" {
		return fmt.Errorf("SPREADSHEET_ID or SPREADSHEET_NAME is required")
	}
	if c.DriveFolderID == "" {
		return fmt.Errorf("DRIVE_FOLDER_ID is required")
	}
	return nil
}
