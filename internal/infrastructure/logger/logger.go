package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

var (
	Info  *log.Logger
	Error *log.Logger
	Debug *log.Logger
	Warn  *log.Logger
)

const logFlags = log.Ldate | log.Ltime | log.LUTC | log.Lshortfile

func init() {
	Info = log.New(os.Stdout, "INFO: ", logFlags)
	Error = log.New(os.Stdout, "ERROR: ", logFlags)
	Debug = log.New(io.Discard, "DEBUG: ", logFlags)
	Warn = log.New(os.Stdout, "WARN: ", logFlags)
}

// SetLevel adjusts which loggers write output. Debug is silent unless level
// is "debug"; "error" also silences Info and Warn.
func SetLevel(level string) {
	out := io.Writer(os.Stdout)

	Debug.SetOutput(io.Discard)
	Info.SetOutput(out)
	Warn.SetOutput(out)

	switch strings.ToLower(level) {
	case "debug":
		Debug.SetOutput(out)
	case "warn":
		Info.SetOutput(io.Discard)
	case "error":
		Info.SetOutput(io.Discard)
		Warn.SetOutput(io.Discard)
	}
}
