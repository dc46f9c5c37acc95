//go:build linux

package main

import "handy/action"

func main() {
	execute()
}

func newUIExecutor() uiExecutor {
	return action.NewLoop()
}
