package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.kbsearch/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".kbsearch", "logs")
	}
	return filepath.Join(home, ".kbsearch", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "kbsearch.log")
}
