package writers

import (
	"errors"
	"io"
	"syscall"
)

// IsBrokenPipe reports whether err means the reader of the output went away,
// as when profiles are piped into head.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}

// dropBrokenPipe treats a vanished reader as a clean finish.
func dropBrokenPipe(err error) error {
	if IsBrokenPipe(err) {
		return nil
	}
	return err
}
