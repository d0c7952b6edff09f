//go:build windows

package main

import (
	"os"

	"golang.org/x/sys/windows"
)

// Disables quick-edit mode. wormclient
// spends most of its life blocked in Client.Run's receive/heartbeat/send
// goroutines; quick-edit mode freezes console output the instant a user
// clicks into the window, which would otherwise look like the connection to
// the server had silently stalled.
func init() {
	con := windows.Handle(os.Stdin.Fd())

	var mode uint32
	if err := windows.GetConsoleMode(con, &mode); err == nil {
		mode |= windows.ENABLE_EXTENDED_FLAGS
		mode &^= windows.ENABLE_QUICK_EDIT_MODE
		_ = windows.SetConsoleMode(con, mode)
	}
}
