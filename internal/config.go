package internal

// Config holds the settings shared by the command line tools.
type Config struct {
	Dir               string
	ReadWrite         bool
	SyncOnPut         bool
	MaxDatafileSizeMB int
	LogLevel          string
}

const DEFAULT_DIR = "./data"
const DEFAULT_DATAFILE_SIZE_MB = 64
const DEFAULT_LOG_LEVEL = "warn"

func DefaultConfig() *Config {
	return &Config{
		Dir:               DEFAULT_DIR,
		ReadWrite:         false,
		SyncOnPut:         false,
		MaxDatafileSizeMB: DEFAULT_DATAFILE_SIZE_MB,
		LogLevel:          DEFAULT_LOG_LEVEL,
	}
}
