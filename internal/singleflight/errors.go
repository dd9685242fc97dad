package singleflight

import (
	"errors"
	"fmt"
)

// ErrGoexit is returned to waiters when the running call exited through
// runtime.Goexit.
var ErrGoexit = errors.New("singleflight: call exited via runtime.Goexit")

// PanicError is returned to waiters when the running call panicked. The
// caller that ran the function sees the original panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("singleflight: call panicked: %v", p.Value)
}
