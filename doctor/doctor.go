// Package doctor runs environment checks for the dictation loop and prints
// a PASS/FAIL line for each.
package doctor

import (
	"fmt"
	"io"
	"os"
	"time"

	"handy/shutdown"
)

// Check is one diagnostic. Run returns a short detail line on success.
type Check struct {
	Name string
	Run  func() (string, error)
	// Fix is printed after a failure.
	Fix string
}

// Run executes checks in order and returns an exit code (0=all pass, 1=any fail).
// A failing check does not stop the remaining ones.
func Run(w io.Writer, checks []Check) int {
	stopInterrupt := interruptHandler(w)
	defer stopInterrupt()

	fmt.Fprintln(w, "handy doctor - system diagnostics")
	fmt.Fprintln(w, "=================================")

	failed := 0
	for i, c := range checks {
		fmt.Fprintf(w, "\n[%d/%d] %s\n", i+1, len(checks), c.Name)
		start := time.Now()
		detail, err := c.Run()
		if err != nil {
			failed++
			fmt.Fprintf(w, "  FAIL: %v\n", err)
			if c.Fix != "" {
				fmt.Fprintf(w, "  Fix: %s\n", c.Fix)
			}
			continue
		}
		fmt.Fprintf(w, "  PASS: %s (%s)\n", detail, time.Since(start).Round(time.Millisecond))
	}

	fmt.Fprintln(w)
	if failed == 0 {
		fmt.Fprintln(w, "All checks passed!")
		return 0
	}
	fmt.Fprintf(w, "%d of %d checks failed. See details above.\n", failed, len(checks))
	return 1
}

func interruptHandler(w io.Writer) func() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(w, "\nInterrupted")
			os.Exit(1)
		case <-done:
		}
	}()
	return func() {
		shutdown.Stop(sigChan)
		close(done)
	}
}
