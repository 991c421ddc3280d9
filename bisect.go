package testmachine

import "testmachine/operation"

// shortestFailingPrefix binary-searches over prefix length for the
// shortest failing prefix of a program known to fail as a whole.
//
// invariant: program[:high] fails, program[:low] doesn't
//
// Correctness only relies on program[:high] currently failing at each
// step; longer prefixes are not assumed to fail. This costs a
// logarithmic number of oracle calls instead of a linear scan.
func (m *TestMachine) shortestFailingPrefix(program operation.Program) (operation.Program, error) {
	low := 0
	high := len(program)

	for high-low > 1 {
		mid := (low + high) / 2
		fails, err := m.orc.Fails(program[:mid])
		if err != nil {
			return nil, err
		}
		if fails {
			high = mid
		} else {
			low = mid
		}
	}
	return program[:high], nil
}
