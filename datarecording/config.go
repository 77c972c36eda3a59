package datarecording

import "fmt"

// Recorder backends.
const (
	BackendSQLite     = "sqlite"
	BackendClickHouse = "clickhouse"
)

// RecorderConfig selects and configures a DataRecorder backend.
type RecorderConfig struct {
	// Type is BackendSQLite (the default) or BackendClickHouse.
	Type string

	// Path is the SQLite file. Empty means DefaultPath().
	Path string

	// ConnStr is the ClickHouse DSN.
	ConnStr string

	// BatchSize is the number of buffered ClickHouse rows that triggers a
	// flush. 0 means 100000.
	BatchSize int
}

// NewDataRecorderWithConfig creates the DataRecorder the config describes.
func NewDataRecorderWithConfig(cfg RecorderConfig) (DataRecorder, error) {
	switch cfg.Type {
	case "", BackendSQLite:
		return New(cfg.Path), nil
	case BackendClickHouse:
		if cfg.ConnStr == "" {
			return nil, fmt.Errorf("ClickHouse recorder needs a DSN")
		}

		batchSize := cfg.BatchSize
		if batchSize == 0 {
			batchSize = 100000
		}

		return newClickHouseRecorder(cfg.ConnStr, batchSize)
	default:
		return nil, fmt.Errorf("unknown recorder type %q", cfg.Type)
	}
}
