package backend

import (
	"fmt"

	"donorboard/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	source := SourceType(appConfig.DataSource)
	if !source.IsValid() {
		return Config{}, fmt.Errorf("invalid data source in config: %s", appConfig.DataSource)
	}
	store := StoreType(appConfig.SessionStore)
	if !store.IsValid() {
		return Config{}, fmt.Errorf("invalid session store in config: %s", appConfig.SessionStore)
	}

	return Config{
		Source: source,
		Store:  store,

		DataFilePath: appConfig.DataFilePath,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetRange:         appConfig.GoogleSheetRange,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,

		SQLiteDBPath:     appConfig.SQLiteDBPath,
		SessionTTL:       appConfig.SessionTTL,
		SessionCacheSize: appConfig.SessionCacheSize,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Source.IsValid() {
		return fmt.Errorf("invalid data source: %s", c.Source)
	}
	if !c.Store.IsValid() {
		return fmt.Errorf("invalid session store: %s", c.Store)
	}

	switch c.Source {
	case FileSource:
		if c.DataFilePath == "" {
			return fmt.Errorf("data file path is required for file source")
		}
	case SheetsSource:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets source")
		}
		if c.GoogleSheetRange == "" {
			return fmt.Errorf("Google sheet range is required for sheets source")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			return fmt.Errorf("either GoogleServiceAccountFile or GoogleServiceAccountJSON must be provided for sheets source")
		}
	}

	if c.Store == SQLiteStore && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite session store")
	}
	return nil
}

// GetSourceTypes returns all valid source types
func GetSourceTypes() []SourceType {
	return []SourceType{UploadSource, FileSource, SheetsSource}
}

// GetSourceTypeStrings returns all valid source type strings
func GetSourceTypeStrings() []string {
	types := GetSourceTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
