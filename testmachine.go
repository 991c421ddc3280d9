// Package testmachine is a randomized model-based test engine.
//
// The engine generates random programs, sequences of abstract
// operations, against a stateful interpreter context, hunts for a
// program whose real execution fails, then shrinks it to a locally
// minimal reproducer using prefix bisection followed by
// delta-debugging.
//
// The grammar of operations, the interpreter context and the selection
// weights are injected; the engine treats the operations under test as
// an opaque, possibly crashing black box.
package testmachine

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"testmachine/language"
	"testmachine/operation"
	"testmachine/oracle"
)

// A TestMachine searches for and minimizes failing programs over a set
// of registered languages.
//
// A TestMachine is single threaded: one program is generated, checked
// or shrunk at a time and no context is ever shared between
// executions.
type TestMachine struct {
	newContext operation.Factory
	selector   *language.Selector
	rand       *rand.Rand

	orc oracle.Oracle
	sub *oracle.Subprocess

	maxAttempts    int
	progLength     int
	targetExamples int
	seed           int64

	isolated    bool
	verbose     bool
	simulation  bool
	printOutput bool

	out       io.Writer
	logger    *zap.Logger
	loggerSet bool
	ownOracle bool
}

// New creates a TestMachine over contexts produced by newContext,
// configured with the provided options.
func New(newContext operation.Factory, opts ...Option) *TestMachine {
	m := &TestMachine{
		newContext:     newContext,
		maxAttempts:    500,
		progLength:     200,
		targetExamples: 10,
		seed:           time.Now().UnixNano(),
		printOutput:    true,
		out:            os.Stdout,
		logger:         zap.NewNop(),
		ownOracle:      true,
	}

	for _, opt := range opts {
		switch t := opt.(type) {
		case maxAttemptsOption:
			m.maxAttempts = t.n
		case programLengthOption:
			m.progLength = t.n
		case targetExamplesOption:
			m.targetExamples = t.n
		case seedOption:
			m.seed = t.seed
		case isolatedOption:
			m.isolated = true
		case verboseOption:
			m.verbose = true
		case silentOption:
			m.printOutput = false
		case simulationOnlyOption:
			m.simulation = true
		case outputOption:
			m.out = t.w
		case loggerOption:
			m.logger = t.logger
			m.loggerSet = true
		case oracleOption:
			m.orc = t.o
			m.ownOracle = false
		}
	}

	m.rand = rand.New(rand.NewSource(m.seed))
	m.selector = language.NewSelectorWithRand(m.rand)
	m.buildOracle()
	return m
}

// buildOracle installs the oracle matching the current isolation flag.
// Called again after CLI flags are parsed, since they may toggle it.
func (m *TestMachine) buildOracle() {
	if !m.ownOracle {
		return
	}
	if m.isolated {
		m.sub = oracle.NewSubprocess(m.verbose, m.logger)
		m.orc = m.sub
	} else {
		m.sub = nil
		m.orc = oracle.NewInProcess(m.newContext, m.logger)
	}
}

// Add registers languages with selection weight one.
func (m *TestMachine) Add(langs ...language.Language) {
	for _, l := range langs {
		m.selector.Register(l, 1)
	}
}

// AddWeighted registers a language with the given selection weight.
func (m *TestMachine) AddWeighted(lang language.Language, weight int) {
	m.selector.Register(lang, weight)
}

// Operations registers the prototype operations as one language that
// picks uniformly among the applicable ones, sharing the machine's
// random source.
func (m *TestMachine) Operations(ops ...operation.Operation) {
	m.Add(language.Operations(m.rand, ops...))
}

// Rand returns the machine's random source, for grammars that bind
// random arguments during generation. Seeded by the Seed option, so
// runs are reproducible.
func (m *TestMachine) Rand() *rand.Rand {
	return m.rand
}

// Run searches for a failing program and returns a minimized version
// of it. Returns (nil, nil) if no failing program was found within the
// attempt budget, which is a legitimate outcome, reported but not
// retried.
//
// If reporting is enabled the minimized program is replayed twice:
// once in simulation mode to print its trace, and once in real mode to
// confirm it still fails.
func (m *TestMachine) Run() (operation.Program, error) {
	first, err := m.findFailingProgram()
	if err != nil {
		var nf NoFailingProgramError
		if errors.As(err, &nf) {
			m.inform(nf.Error())
			return nil, nil
		}
		return nil, err
	}

	minimal, err := m.minimize(first)
	if err != nil {
		return nil, err
	}

	if m.printOutput {
		if err := m.printProgramResults(minimal); err != nil {
			return nil, err
		}
	}
	return minimal, nil
}

// TrialRun generates and executes a single program, printing its
// execution log even when the run dies partway. The program runs on a
// simulation context when the simulation flag is set.
func (m *TestMachine) TrialRun() error {
	ctx := m.newContext(m.simulation)
	var runErr error
	for i := 0; i < m.progLength; i++ {
		op, err := m.selector.Generate(ctx)
		if err != nil {
			runErr = fmt.Errorf("testmachine: generating operation %d: %w", i, err)
			break
		}
		if err := ctx.Execute(op); err != nil {
			runErr = err
			break
		}
	}
	m.printExecutionLog(ctx)
	return runErr
}
