package runtime

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"costdeploy/pkg/runtime"
)

// DryRunRunner prints commands instead of executing them.
type DryRunRunner struct {
	out io.Writer
}

func NewDryRunRunner(out io.Writer) *DryRunRunner {
	return &DryRunRunner{out: out}
}

func (r *DryRunRunner) Run(ctx context.Context, c runtime.Command) (*runtime.Result, error) {
	if c.Dir != "" {
		fmt.Fprintf(r.out, "DRY RUN: Would run '%s' in %s\n", c.String(), c.Dir)
	} else {
		fmt.Fprintf(r.out, "DRY RUN: Would run '%s'\n", c.String())
	}
	return &runtime.Result{}, nil
}

// LookPath still inspects the real host so package manager detection matches a live run.
func (r *DryRunRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
