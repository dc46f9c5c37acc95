// Package clipboard delivers text by writing it to the system clipboard and
// sending the platform paste keystroke.
package clipboard

import (
	"fmt"
	"time"

	cb "github.com/atotto/clipboard"

	"handy/log"
)

func Read() (string, error) {
	return cb.ReadAll()
}

func Copy(text string) error {
	return cb.WriteAll(text)
}

const (
	// time for the clipboard owner to publish the new content
	settleDelay = 50 * time.Millisecond
	// time for the focused app to read the clipboard before it is restored
	restoreDelay = 150 * time.Millisecond
)

// Deliverer pastes text into the focused application. Paste must be called
// from the UI thread.
type Deliverer struct {
	// Restore puts the previous clipboard content back after pasting.
	Restore bool

	copy    func(string) error
	read    func() (string, error)
	sendKey func() error
	sleep   func(time.Duration)
}

func New(restore bool) *Deliverer {
	return &Deliverer{
		Restore: restore,
		copy:    Copy,
		read:    Read,
		sendKey: sendPaste,
		sleep:   time.Sleep,
	}
}

func (d *Deliverer) Paste(text string) error {
	var prev string
	hadPrev := false
	if d.Restore {
		if p, err := d.read(); err == nil {
			prev, hadPrev = p, true
		} else {
			log.Debugf("clipboard read failed, not restoring: %v", err)
		}
	}

	if err := d.copy(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	d.sleep(settleDelay)
	if err := d.sendKey(); err != nil {
		return fmt.Errorf("send paste keystroke: %w", err)
	}

	if hadPrev {
		d.sleep(restoreDelay)
		if err := d.copy(prev); err != nil {
			log.Warnf("failed to restore clipboard: %v", err)
		}
	}
	return nil
}
