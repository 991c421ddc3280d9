package testmachine

import (
	"errors"
	"fmt"
	"math/rand"

	"testmachine/interp"
	"testmachine/operation"
)

// A small stack grammar for use when testing the engine. Underflow
// fails only on a real context; simulation treats popping an empty
// stack as a no-op, so generated programs may legitimately contain
// more pops than pushes.

const stackName = "values"

func newTestContext(simulation bool) operation.Context {
	return interp.New(simulation)
}

func testStack(ctx operation.Context) *interp.VarStack {
	return ctx.(*interp.RunContext).Stack(stackName)
}

type pushOp struct{ Value int }

func (p pushOp) Generate(ctx operation.Context) (operation.Operation, error) {
	return p, nil
}

func (p pushOp) Execute(ctx operation.Context) error {
	testStack(ctx).Push(p.Value)
	return nil
}

func (p pushOp) Compile(arguments, results []string) []string {
	if len(results) < 1 {
		return []string{fmt.Sprintf("push %d", p.Value)}
	}
	return []string{fmt.Sprintf("%s = %d", results[0], p.Value)}
}

func (p pushOp) Applicable(heights operation.Heights) bool { return true }

type popOp struct{}

func (p popOp) Generate(ctx operation.Context) (operation.Operation, error) {
	return p, nil
}

func (p popOp) Execute(ctx operation.Context) error {
	s := testStack(ctx)
	if ctx.Simulation() {
		if s.Height() > 0 {
			s.Pop()
		}
		return nil
	}
	_, err := s.Pop()
	return err
}

func (p popOp) Compile(arguments, results []string) []string {
	if len(arguments) < 1 {
		return []string{"pop"}
	}
	return []string{fmt.Sprintf("pop %s", arguments[0])}
}

func (p popOp) Applicable(heights operation.Heights) bool { return true }

// gatedPopOp is a pop that is only applicable on a non-empty stack.
type gatedPopOp struct{ popOp }

func (p gatedPopOp) Generate(ctx operation.Context) (operation.Operation, error) {
	return p, nil
}

func (p gatedPopOp) Applicable(heights operation.Heights) bool {
	return heights[stackName] >= 1
}

// faultOp fails in both modes, for exercising prune truncation.
type faultOp struct{}

func (f faultOp) Generate(ctx operation.Context) (operation.Operation, error) {
	return f, nil
}

func (f faultOp) Execute(ctx operation.Context) error {
	return errors.New("deliberate fault")
}

func (f faultOp) Compile(arguments, results []string) []string {
	return []string{"fault"}
}

func (f faultOp) Applicable(heights operation.Heights) bool { return true }

// rndPush binds a random value at generation time.
type rndPush struct{ rand *rand.Rand }

func (p rndPush) Generate(ctx operation.Context) (operation.Operation, error) {
	return pushOp{Value: p.rand.Intn(100)}, nil
}

func (p rndPush) Execute(ctx operation.Context) error {
	return errors.New("prototype executed")
}

func (p rndPush) Compile(arguments, results []string) []string {
	return []string{"push ?"}
}

func (p rndPush) Applicable(heights operation.Heights) bool { return true }

// scriptedLanguage yields a fixed sequence of operations, wrapping
// around at the end.
type scriptedLanguage struct {
	ops  []operation.Operation
	next int
}

func (s *scriptedLanguage) Generate(ctx operation.Context) (operation.Operation, error) {
	op := s.ops[s.next%len(s.ops)]
	s.next++
	return op, nil
}

// stubOracle decides failure from a pure function of the program.
type stubOracle struct {
	fails func(operation.Program) bool
	calls int
}

func (s *stubOracle) Fails(program operation.Program) (bool, error) {
	s.calls++
	return s.fails(program), nil
}

// dummyProgram builds a program of n always-passing operations.
func dummyProgram(n int) operation.Program {
	program := make(operation.Program, 0, n)
	for i := 0; i < n; i++ {
		program = append(program, pushOp{Value: i})
	}
	return program
}
