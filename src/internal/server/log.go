package server

import (
	"os"
	"path/filepath"

	l "github.com/sirupsen/logrus"
)

const logFilename = "collserv.log"

// setupLogging sets up logging with the level logLevel. If logDir is set, log
// entries go into a file there, otherwise to stderr. stdout is never used for
// logging since the stdio transport owns it.
func setupLogging(logDir, logLevel string) (err error) {
	// set up logging: no log entries possible before this statement!
	level, err := l.ParseLevel(logLevel)
	if err != nil {
		return
	}
	l.SetLevel(level)

	if logDir == "" {
		l.SetOutput(os.Stderr)
		return
	}

	path := filepath.Join(logDir, logFilename)

	// create or open file for write & append
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil {
		return
	}

	l.SetOutput(f)
	return
}
