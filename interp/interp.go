// Package interp provides a ready-made interpreter context for test
// grammars built on named stacks of variables.
//
// Operations interact with the context by pushing and popping values on
// named stacks. The context assigns a fresh variable name to every
// pushed value and records which names each operation consumed and
// produced, so the execution log can later be compiled into a readable
// trace.
package interp

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"testmachine/operation"
)

// UnderflowError is returned when an operation pops from an empty
// stack.
type UnderflowError struct {
	Stack string
}

func (e UnderflowError) Error() string {
	return fmt.Sprintf("interp: pop from empty stack %q", e.Stack)
}

// A RunContext executes operations and tracks named variable stacks.
//
// With simulation set the context behaves identically but operations
// are expected to skip any real side effects, making the run a
// structural dry run.
type RunContext struct {
	simulation bool
	stacks     map[string]*VarStack
	log        []operation.Step
	counter    int

	// step under construction, recording stack interactions
	current *operation.Step
}

// New creates an empty context.
func New(simulation bool) *RunContext {
	return &RunContext{
		simulation: simulation,
		stacks:     make(map[string]*VarStack),
	}
}

func (c *RunContext) Simulation() bool {
	return c.simulation
}

// Stack returns the named stack, creating it if needed.
func (c *RunContext) Stack(name string) *VarStack {
	s, ok := c.stacks[name]
	if !ok {
		s = &VarStack{name: name, ctx: c}
		c.stacks[name] = s
	}
	return s
}

// Execute runs a single operation and appends it to the log. The step
// is logged even when the operation fails, by error or by panic, so
// that the failing statement appears in the trace.
func (c *RunContext) Execute(op operation.Operation) error {
	step := operation.Step{Op: op}
	c.current = &step
	defer func() {
		c.current = nil
		c.log = append(c.log, step)
	}()
	return op.Execute(c)
}

// Run executes the program in order, stopping at the first failure.
func (c *RunContext) Run(program operation.Program) error {
	for _, op := range program {
		if err := c.Execute(op); err != nil {
			return err
		}
	}
	return nil
}

// Heights returns the current height of every stack.
func (c *RunContext) Heights() operation.Heights {
	heights := make(operation.Heights, len(c.stacks))
	for name, s := range c.stacks {
		heights[name] = s.Height()
	}
	return heights
}

func (c *RunContext) Log() []operation.Step {
	return c.log
}

// Summary renders the final stack heights, one line per stack in name
// order.
func (c *RunContext) Summary() []string {
	names := maps.Keys(c.stacks)
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %d values", name, c.stacks[name].Height()))
	}
	return lines
}

func (c *RunContext) freshName() string {
	name := fmt.Sprintf("t%d", c.counter)
	c.counter++
	return name
}

// A VarStack is a named stack of variables. Pushes and pops performed
// while an operation executes are recorded as that operation's results
// and arguments.
type VarStack struct {
	name string
	ctx  *RunContext
	vars []variable
}

type variable struct {
	name  string
	value any
}

// Push adds a value and returns the fresh variable name bound to it.
func (s *VarStack) Push(value any) string {
	name := s.ctx.freshName()
	s.vars = append(s.vars, variable{name: name, value: value})
	if s.ctx.current != nil {
		s.ctx.current.Results = append(s.ctx.current.Results, name)
	}
	return name
}

// Pop removes the top value. Returns an UnderflowError when the stack
// is empty.
func (s *VarStack) Pop() (any, error) {
	if len(s.vars) == 0 {
		return nil, UnderflowError{Stack: s.name}
	}
	v := s.vars[len(s.vars)-1]
	s.vars = s.vars[:len(s.vars)-1]
	if s.ctx.current != nil {
		s.ctx.current.Arguments = append(s.ctx.current.Arguments, v.name)
	}
	return v.value, nil
}

// Peek returns the top value without removing it.
func (s *VarStack) Peek() (any, error) {
	if len(s.vars) == 0 {
		return nil, UnderflowError{Stack: s.name}
	}
	v := s.vars[len(s.vars)-1]
	if s.ctx.current != nil {
		s.ctx.current.Arguments = append(s.ctx.current.Arguments, v.name)
	}
	return v.value, nil
}

func (s *VarStack) Height() int {
	return len(s.vars)
}
