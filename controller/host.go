package controller

import (
	"errors"
	"fmt"
)

type hostPanicError struct {
	value any
}

func (e *hostPanicError) Error() string {
	return fmt.Sprintf("add-on manager panicked: %v", e.value)
}

// callHost runs a host call and turns a panic into an error.
func callHost(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &hostPanicError{value: r}
		}
	}()
	return fn()
}

func isHostPanic(err error) bool {
	var p *hostPanicError
	return errors.As(err, &p)
}
