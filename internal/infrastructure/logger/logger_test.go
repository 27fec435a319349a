package logger

import (
	"io"
	"testing"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	tests := []struct {
		level                       string
		debug, info, warn, errorLog bool
	}{
		{level: "debug", debug: true, info: true, warn: true, errorLog: true},
		{level: "info", info: true, warn: true, errorLog: true},
		{level: "INFO", info: true, warn: true, errorLog: true},
		{level: "warn", warn: true, errorLog: true},
		{level: "error", errorLog: true},
		{level: "", info: true, warn: true, errorLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			SetLevel(tt.level)

			check := func(name string, want bool, got io.Writer) {
				t.Helper()
				if enabled := got != io.Discard; enabled != want {
					t.Errorf("%s enabled = %v, want %v", name, enabled, want)
				}
			}
			check("Debug", tt.debug, Debug.Writer())
			check("Info", tt.info, Info.Writer())
			check("Warn", tt.warn, Warn.Writer())
			check("Error", tt.errorLog, Error.Writer())
		})
	}
}
