// Package oracle decides whether a program fails.
//
// Subject failures, errors as well as panics raised while executing a
// program on a real context, are converted into a boolean here and
// never escape into the search logic. The package offers two isolation
// levels: direct in-process execution with panic containment, and a
// subprocess sandbox where a crash of the subject cannot take down the
// harness.
package oracle

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"testmachine/operation"
)

// An Oracle reports whether a program fails when executed for real.
//
// The boolean is the subject signal. The error is reserved for harness
// infrastructure faults, such as being unable to spawn an isolation
// child, and is never used for subject failures.
type Oracle interface {
	Fails(program operation.Program) (bool, error)
}

// PanicError wraps a panic raised by the subject during execution.
type PanicError struct {
	Value any
	Stack []byte
}

func (e PanicError) Error() string {
	return fmt.Sprintf("oracle: panic during execution: %v", e.Value)
}

// Replay executes the program on a fresh real context, containing
// panics. The returned error is the subject failure, or nil if the
// program ran to completion.
func Replay(newContext operation.Factory, program operation.Program) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	ctx := newContext(false)
	return ctx.Run(program)
}

// InProcess runs programs directly in the harness process. Panics are
// recovered, so only a subject that corrupts process-global state can
// affect the harness.
type InProcess struct {
	newContext operation.Factory
	logger     *zap.Logger
}

func NewInProcess(newContext operation.Factory, logger *zap.Logger) *InProcess {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InProcess{newContext: newContext, logger: logger}
}

func (o *InProcess) Fails(program operation.Program) (bool, error) {
	err := Replay(o.newContext, program)
	if err == nil {
		return false, nil
	}
	if pe, ok := err.(PanicError); ok {
		o.logger.Debug("program failed",
			zap.Int("length", len(program)),
			zap.Error(pe),
			zap.ByteString("stack", pe.Stack))
	} else {
		o.logger.Debug("program failed",
			zap.Int("length", len(program)),
			zap.Error(err))
	}
	return true, nil
}
