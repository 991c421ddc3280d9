package testmachine

import "fmt"

// NoFailingProgramError is returned by the search when the attempt
// budget is exhausted without finding a single failing program. It is
// a normal terminal outcome, not a harness fault; the caller must
// widen the budget to retry.
type NoFailingProgramError struct {
	Length   int
	Attempts int
}

func (e NoFailingProgramError) Error() string {
	return fmt.Sprintf("testmachine: unable to find a failing program of length <= %d after %d iterations", e.Length, e.Attempts)
}

// InconsistentProgramError reports that a program the engine believed
// to be failing no longer fails. It indicates a logic defect in the
// oracle or the shrinker.
type InconsistentProgramError struct {
	Length int
}

func (e InconsistentProgramError) Error() string {
	return fmt.Sprintf("testmachine: program of length %d should be failing but isn't", e.Length)
}
