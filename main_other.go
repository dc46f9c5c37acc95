//go:build !linux

package main

import (
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	mainthread.Init(execute)
}

// mainThread runs UI work on the locked OS thread, where the platform
// paste and hotkey APIs expect it.
type mainThread struct{}

func (mainThread) Run(fn func()) error {
	mainthread.Call(fn)
	return nil
}

func (mainThread) Close() {}

func newUIExecutor() uiExecutor {
	return mainThread{}
}
