//go:build !unix

package main

import "errors"

func restart() error {
	return errors.New("full reset requires a restart by the service manager")
}
