package testmachine

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"testmachine/operation"
	"testmachine/oracle"
)

func (m *TestMachine) inform(message string) {
	if m.printOutput {
		fmt.Fprintln(m.out, message)
	}
}

// printExecutionLog compiles every logged step into its display
// statements and prints them in order.
func (m *TestMachine) printExecutionLog(ctx operation.Context) {
	for _, step := range ctx.Log() {
		for _, statement := range step.Op.Compile(step.Arguments, step.Results) {
			m.inform(statement)
		}
	}
}

// printProgramResults prints the trace of the minimized program from a
// simulated replay, then replays it for real to confirm it still
// fails. A passing real replay is an internal invariant violation and
// panics.
//
// In isolated mode both replays happen inside a child so that a
// subject crashing during the final replay cannot take down the
// harness.
func (m *TestMachine) printProgramResults(program operation.Program) error {
	if m.sub != nil {
		consistent, err := m.sub.Report(program, m.out)
		if err != nil {
			return err
		}
		if !consistent {
			m.logger.Panic("minimized program no longer fails",
				zap.Int("length", len(program)))
		}
		return nil
	}

	// Simulated replay for the trace. A failure here only cuts the
	// trace short.
	sim := m.newContext(true)
	if err := simRun(sim, program); err != nil && m.verbose {
		m.inform(fmt.Sprintf("simulated replay stopped: %v", err))
	}
	m.printExecutionLog(sim)

	err := oracle.Replay(m.newContext, program)
	if err == nil {
		m.logger.Panic("minimized program no longer fails",
			zap.Int("length", len(program)))
	}
	if pe, ok := err.(oracle.PanicError); ok {
		m.inform(fmt.Sprintf("%v", pe.Value))
		m.inform(string(pe.Stack))
	} else {
		m.inform(err.Error())
	}
	return nil
}

// simRun runs the program on the given simulation context, converting
// a panic into an error.
func simRun(ctx operation.Context, program operation.Program) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during simulated replay: %v\n%s", p, debug.Stack())
		}
	}()
	return ctx.Run(program)
}
