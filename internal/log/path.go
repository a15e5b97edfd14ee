package log

import (
	"os"
	"path/filepath"
	"runtime"
)

var (
	logDir     string
	logDirOnce bool
)

// GetLogDir returns the platform-specific log directory for mediagate,
// preferring /var/log/mediagate on Linux and falling back to a per-user or
// temp directory when that is not writable. The directory is created on
// first use.
func GetLogDir() string {
	if logDirOnce {
		return logDir
	}

	logDir = determineLogDir()
	logDirOnce = true

	if err := os.MkdirAll(logDir, 0755); err != nil {
		logDir = filepath.Join(os.TempDir(), "mediagate")
		_ = os.MkdirAll(logDir, 0755)
	}

	return logDir
}

func determineLogDir() string {
	if runtime.GOOS == "linux" {
		varLogDir := "/var/log/mediagate"
		if err := os.MkdirAll(varLogDir, 0755); err == nil {
			testFile := filepath.Join(varLogDir, ".write_test")
			if f, err := os.Create(testFile); err == nil {
				_ = f.Close()
				_ = os.Remove(testFile)
				return varLogDir
			}
		}
	}
	return getUserLogDir()
}

func getUserLogDir() string {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		userLogDir := filepath.Join(homeDir, ".mediagate")
		if err := os.MkdirAll(userLogDir, 0755); err == nil {
			return userLogDir
		}
	}
	return filepath.Join(os.TempDir(), "mediagate")
}

// GetLogFilePath returns the full path to the main log file.
func GetLogFilePath() string {
	return filepath.Join(GetLogDir(), "mediagate.log")
}

// GetStatsFilePath returns the full path to a stats file.
func GetStatsFilePath(name string) string {
	return filepath.Join(GetLogDir(), name)
}
