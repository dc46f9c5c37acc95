// Package action binds hotkey bindings to start/stop behaviour.
package action

import (
	"sort"

	"handy/log"
)

// Action is the start/stop pair run for a binding.
type Action interface {
	Start(binding, shortcut string)
	Stop(binding, shortcut string)
}

// Dispatcher resolves a binding to its Action. The registry is copied at
// construction and never changes afterwards.
type Dispatcher struct {
	actions map[string]Action
}

func NewDispatcher(actions map[string]Action) *Dispatcher {
	m := make(map[string]Action, len(actions))
	for name, a := range actions {
		m[name] = a
	}
	return &Dispatcher{actions: m}
}

func (d *Dispatcher) Start(binding, shortcut string) bool {
	a, ok := d.actions[binding]
	if !ok {
		log.Warnf("no action registered for binding %q", binding)
		return false
	}
	a.Start(binding, shortcut)
	return true
}

func (d *Dispatcher) Stop(binding, shortcut string) bool {
	a, ok := d.actions[binding]
	if !ok {
		log.Warnf("no action registered for binding %q", binding)
		return false
	}
	a.Stop(binding, shortcut)
	return true
}

func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.actions))
	for name := range d.actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Test logs the shortcut events without doing anything else.
type Test struct {
	App string
}

func (t Test) Start(binding, shortcut string) {
	log.Infof("Shortcut ID %q: Started - %s (App: %s)", binding, shortcut, t.App)
}

func (t Test) Stop(binding, shortcut string) {
	log.Infof("Shortcut ID %q: Stopped - %s (App: %s)", binding, shortcut, t.App)
}
