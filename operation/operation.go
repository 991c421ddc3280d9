package operation

// Heights is a snapshot of the resource levels tracked by a context,
// keyed by resource name. It is used to decide whether an operation is
// structurally applicable without executing it.
type Heights map[string]int

// An Operation is one abstract test step.
//
// A registered operation acts as a prototype: Generate binds concrete
// arguments from the current (simulated) context state and returns the
// instance that will be part of the program. Execute runs the instance
// against a context, real or simulated. Compile renders the step as a
// sequence of display statements given the variable names it consumed
// and produced. Applicable reports whether the operation is
// structurally valid given a resource height snapshot, without
// executing it.
type Operation interface {
	// Generate an instance of this operation conditioned on the current
	// context state. Returns an error if the operation cannot be
	// generated in this state, which signals a grammar defect.
	Generate(ctx Context) (Operation, error)

	// Execute the operation against the context. Returning an error
	// during a real run is the failure signal the engine searches for.
	Execute(ctx Context) error

	// Compile the step into display statements. arguments and results
	// are the variable names the step consumed and produced.
	Compile(arguments, results []string) []string

	// Applicable reports whether the operation is structurally valid
	// for the given resource heights.
	Applicable(heights Heights) bool
}

// A Program is an ordered sequence of operations forming one test
// attempt. Its length is the primary minimization metric.
type Program []Operation

// Clone returns a copy of the program sharing the operation values.
func (p Program) Clone() Program {
	q := make(Program, len(p))
	copy(q, p)
	return q
}

// Remove returns a copy of the program with the operation at index i
// removed.
func (p Program) Remove(i int) Program {
	q := make(Program, 0, len(p)-1)
	q = append(q, p[:i]...)
	q = append(q, p[i+1:]...)
	return q
}

// A Step is one executed operation together with the variable names it
// consumed and produced. Steps are recorded in the context log and are
// used only for reporting.
type Step struct {
	Op        Operation
	Arguments []string
	Results   []string
}

// A Context executes operations, real or simulated, and tracks a
// resource height snapshot and an append-only execution log.
//
// A simulation context must produce no side effects observable outside
// the context. It is used during generation and pruning to validate
// structural consistency.
type Context interface {
	// Simulation reports whether this is a side effect free dry run.
	Simulation() bool

	// Execute runs a single operation and records it in the log.
	Execute(op Operation) error

	// Run executes the program from the current state, stopping at the
	// first failing operation.
	Run(program Program) error

	// Heights returns the current resource height snapshot.
	Heights() Heights

	// Log returns the ordered sequence of executed steps.
	Log() []Step
}

// A Factory creates a fresh context. The engine creates a new context
// for every generation, oracle query and pruning replay.
type Factory func(simulation bool) Context
