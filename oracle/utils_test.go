package oracle

import (
	"errors"
	"os"
	"syscall"

	"testmachine/operation"
)

// A minimal counter context and a handful of operations with scripted
// failure behavior, for exercising the oracles. The concrete types are
// gob-registered so they survive the subprocess boundary.

func init() {
	operation.Register(incOp{}, errOp{}, panicOp{}, abortOp{}, killOp{})
}

func operationProgram(ops ...operation.Operation) operation.Program {
	return operation.Program(ops)
}

type mockContext struct {
	simulation bool
	count      int
	log        []operation.Step
}

func newMockContext(simulation bool) operation.Context {
	return &mockContext{simulation: simulation}
}

func (c *mockContext) Simulation() bool { return c.simulation }

func (c *mockContext) Execute(op operation.Operation) error {
	c.log = append(c.log, operation.Step{Op: op})
	return op.Execute(c)
}

func (c *mockContext) Run(program operation.Program) error {
	for _, op := range program {
		if err := c.Execute(op); err != nil {
			return err
		}
	}
	return nil
}

func (c *mockContext) Heights() operation.Heights {
	return operation.Heights{"count": c.count}
}

func (c *mockContext) Log() []operation.Step { return c.log }

// incOp always succeeds.
type incOp struct{}

func (o incOp) Generate(ctx operation.Context) (operation.Operation, error) { return o, nil }

func (o incOp) Execute(ctx operation.Context) error {
	ctx.(*mockContext).count++
	return nil
}

func (o incOp) Compile(arguments, results []string) []string { return []string{"inc"} }

func (o incOp) Applicable(heights operation.Heights) bool { return true }

// errOp fails with an error on a real context.
type errOp struct{}

func (o errOp) Generate(ctx operation.Context) (operation.Operation, error) { return o, nil }

func (o errOp) Execute(ctx operation.Context) error {
	if ctx.Simulation() {
		return nil
	}
	return errors.New("scripted failure")
}

func (o errOp) Compile(arguments, results []string) []string { return []string{"err"} }

func (o errOp) Applicable(heights operation.Heights) bool { return true }

// panicOp panics on a real context.
type panicOp struct{}

func (o panicOp) Generate(ctx operation.Context) (operation.Operation, error) { return o, nil }

func (o panicOp) Execute(ctx operation.Context) error {
	if !ctx.Simulation() {
		panic("scripted panic")
	}
	return nil
}

func (o panicOp) Compile(arguments, results []string) []string { return []string{"panic"} }

func (o panicOp) Applicable(heights operation.Heights) bool { return true }

// abortOp kills the whole process, bypassing any recover. Only an
// isolated oracle survives it.
type abortOp struct{}

func (o abortOp) Generate(ctx operation.Context) (operation.Operation, error) { return o, nil }

func (o abortOp) Execute(ctx operation.Context) error {
	if !ctx.Simulation() {
		os.Exit(3)
	}
	return nil
}

func (o abortOp) Compile(arguments, results []string) []string { return []string{"abort"} }

func (o abortOp) Applicable(heights operation.Heights) bool { return true }

// killOp sends the process SIGKILL, the way native code dying on an
// async signal would end the child without an exit status.
type killOp struct{}

func (o killOp) Generate(ctx operation.Context) (operation.Operation, error) { return o, nil }

func (o killOp) Execute(ctx operation.Context) error {
	if !ctx.Simulation() {
		syscall.Kill(os.Getpid(), syscall.SIGKILL)
	}
	return nil
}

func (o killOp) Compile(arguments, results []string) []string { return []string{"kill"} }

func (o killOp) Applicable(heights operation.Heights) bool { return true }
