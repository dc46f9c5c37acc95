// Package shutdown subscribes to the process termination signals.
package shutdown

import (
	"os"
	"os/signal"
)

// Notify relays the platform's termination signals to ch.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, signals...)
}

func Stop(ch chan os.Signal) {
	signal.Stop(ch)
}
