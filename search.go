package testmachine

import (
	"fmt"

	"go.uber.org/zap"

	"testmachine/operation"
)

// generateProgram builds one candidate program of the configured
// length. Every generated operation is executed on a simulation
// context so the next operation is conditioned on the state so far.
//
// Errors here are grammar defects and propagate: generation is
// expected to always be structurally valid.
func (m *TestMachine) generateProgram() (operation.Program, error) {
	ctx := m.newContext(true)
	program := make(operation.Program, 0, m.progLength)
	for i := 0; i < m.progLength; i++ {
		op, err := m.selector.Generate(ctx)
		if err != nil {
			return nil, fmt.Errorf("testmachine: generating operation %d: %w", i, err)
		}
		if err := ctx.Execute(op); err != nil {
			return nil, fmt.Errorf("testmachine: simulated execution of generated operation %d: %w", i, err)
		}
		program = append(program, op)
	}
	return program, nil
}

// findFailingProgram generates programs until targetExamples failing
// ones have been found or the attempt budget runs out, keeping the
// shortest prefix-reduced example. Strictly shorter examples replace
// the current best; ties keep the earlier one.
func (m *TestMachine) findFailingProgram() (operation.Program, error) {
	examplesFound := 0
	var best operation.Program

	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		program, err := m.generateProgram()
		if err != nil {
			return nil, err
		}
		fails, err := m.orc.Fails(program)
		if err != nil {
			return nil, err
		}
		if !fails {
			continue
		}

		program, err = m.shortestFailingPrefix(program)
		if err != nil {
			return nil, err
		}
		examplesFound++
		if best == nil || len(program) < len(best) {
			best = program
		}
		m.logger.Debug("failing example found",
			zap.Int("attempt", attempt),
			zap.Int("length", len(program)),
			zap.Int("examples", examplesFound))
		if examplesFound >= m.targetExamples {
			return best, nil
		}
	}

	if best == nil {
		return nil, NoFailingProgramError{Length: m.progLength, Attempts: m.maxAttempts}
	}
	return best, nil
}
