// Package hotkey delivers press and release events for the global shortcut
// and turns them into dispatcher start/stop calls.
package hotkey

import (
	"context"
)

// Shortcut is the combination registered by New.
const Shortcut = "ctrl+shift+space"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Dispatcher is the subset of action.Dispatcher the drivers need.
type Dispatcher interface {
	Start(binding, shortcut string) bool
	Stop(binding, shortcut string) bool
}

// Drive runs push-to-talk: press starts binding, release stops it. It
// returns when ctx is done.
func Drive(ctx context.Context, hk Hotkey, binding string, d Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
			d.Start(binding, Shortcut)
		}
		select {
		case <-ctx.Done():
			d.Stop(binding, Shortcut)
			return
		case <-hk.Keyup():
			d.Stop(binding, Shortcut)
		}
	}
}

// DriveHybrid runs tap-to-toggle and hold-to-talk on the same key. It
// closes hy when ctx is done.
func DriveHybrid(ctx context.Context, hy *Hybrid, binding string, d Dispatcher) {
	defer hy.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case <-hy.Start():
			d.Start(binding, Shortcut)
		}
		select {
		case <-ctx.Done():
			d.Stop(binding, Shortcut)
			return
		case <-hy.StopChan():
			d.Stop(binding, Shortcut)
		}
	}
}
