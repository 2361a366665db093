//go:build unix

package main

import (
	"fmt"
	"os"
	"syscall"
)

// restart replaces the process with a fresh copy of itself, so a full
// reset starts from the same state as a power cycle.
func restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		return fmt.Errorf("re-exec %s: %w", exe, err)
	}
	return nil
}
