package app

import (
	"fmt"
	"io"
	"time"

	"github.com/gosuri/uitable"
)

// RenderState writes a human-readable report of a run journal.
func RenderState(w io.Writer, state *ExecutionState) {
	header := uitable.New()
	header.AddRow("Run:", state.RunID)
	header.AddRow("Started:", state.CreatedAt.Format(time.RFC3339))
	header.AddRow("Outcome:", string(state.Outcome))
	if state.DryRun {
		header.AddRow("Mode:", "dry run")
	}
	if state.Revision != nil {
		header.AddRow("Revision:", state.Revision.String())
	}
	if state.Service != nil {
		header.AddRow("Service:", state.Service.String())
	}
	if state.Endpoint != "" {
		header.AddRow("Endpoint:", state.Endpoint)
	}
	if state.Error != "" {
		header.AddRow("Error:", state.Error)
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w)

	steps := uitable.New()
	steps.MaxColWidth = 60
	steps.Wrap = true
	steps.AddRow("#", "STEP", "STATUS", "DURATION", "MESSAGE")
	for _, r := range state.Steps {
		duration := ""
		if r.Status != StatusSkipped {
			duration = r.Duration.Round(time.Millisecond).String()
		}
		steps.AddRow(r.Number, r.Name, string(r.Status), duration, r.Message)
	}
	fmt.Fprintln(w, steps)
}
