package testmachine

import (
	"fmt"

	"go.uber.org/zap"

	"testmachine/operation"
)

// pruneProgram replays a shrink candidate on a fresh simulation
// context, dropping operations that are no longer structurally
// applicable after earlier removals. The first failure during the
// replay discards the remainder of the candidate: later operations may
// reference state that became unreachable. The operation that failed
// is kept.
//
// Failures here are expected and contained; they end this one replay,
// nothing else.
func (m *TestMachine) pruneProgram(program operation.Program) operation.Program {
	ctx := m.newContext(true)
	result := make(operation.Program, 0, len(program))
	for _, op := range program {
		if !op.Applicable(ctx.Heights()) {
			continue
		}
		result = append(result, op)
		if err := safeExecute(ctx, op); err != nil {
			break
		}
	}
	return result
}

// safeExecute executes one operation on the context, converting a
// panic into an error.
func safeExecute(ctx operation.Context, op operation.Operation) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during simulated replay: %v", p)
		}
	}()
	return ctx.Execute(op)
}

// shrinkCandidates builds the ordered list of shrink candidates for
// one scan: for each index, the program with that operation removed,
// then, when a successor exists, with that operation and its successor
// removed. Every candidate is pruned before being offered.
func (m *TestMachine) shrinkCandidates(program operation.Program) []operation.Program {
	candidates := make([]operation.Program, 0, 2*len(program))
	for i := range program {
		shorter := program.Remove(i)
		candidates = append(candidates, m.pruneProgram(shorter))
		if i < len(shorter) {
			candidates = append(candidates, m.pruneProgram(shorter.Remove(i)))
		}
	}
	return candidates
}

// minimize greedily shrinks a failing program until no single or
// paired removal preserves the failure. After every accepted move the
// scan restarts from the beginning, since a removal can re-open
// earlier positions. Every accepted candidate is strictly shorter, so
// the loop terminates.
//
// The result is minimal under one and two element removal, not
// globally minimal.
func (m *TestMachine) minimize(program operation.Program) (operation.Program, error) {
	fails, err := m.orc.Fails(program)
	if err != nil {
		return nil, err
	}
	if !fails {
		return nil, InconsistentProgramError{Length: len(program)}
	}

	current := program
	for {
		improved := false
		for _, candidate := range m.shrinkCandidates(current) {
			fails, err := m.orc.Fails(candidate)
			if err != nil {
				return nil, err
			}
			if fails {
				m.logger.Debug("shrink step accepted",
					zap.Int("from", len(current)),
					zap.Int("to", len(candidate)))
				current = candidate
				improved = true
				break
			}
		}
		if !improved {
			return current, nil
		}
	}
}
