package dbf

import (
	"io"
	"log"
	"os"
)

var (
	debug       = false
	debugLogger = log.New(os.Stdout, "[xbase] [DEBUG] ", log.LstdFlags)
)

// Debug the dbf package
// If debug is true, debug messages will be printed to the defined io.Writer (default: os.Stdout)
func Debug(enabled bool, out io.Writer) {
	if out != nil {
		debugLogger.SetOutput(out)
	}
	debug = enabled
}

func debugf(format string, v ...interface{}) {
	if debug {
		debugLogger.Printf(format, v...)
	}
}
