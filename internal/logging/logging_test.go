package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{name: "default hides debug", verbose: false, wantDebug: false},
		{name: "verbose shows debug", verbose: true, wantDebug: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Options{Verbose: tt.verbose, Output: &buf})

			logger.Debug("command output", "line", "Collecting flask")
			logger.Info("step completed", "step", "refresh-packages")

			out := buf.String()
			assert.Contains(t, out, "step completed")
			assert.Contains(t, out, "refresh-packages")
			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("Collecting flask")))
		})
	}
}
