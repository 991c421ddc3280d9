package testmachine

import (
	"io"

	"go.uber.org/zap"

	"testmachine/oracle"
)

type Option interface{}

type maxAttemptsOption struct{ n int }

// Configure the maximum number of random programs generated while
// searching for a failing one.
//
// Default value is 500.
func MaxAttempts(n int) Option {
	return maxAttemptsOption{n: n}
}

type programLengthOption struct{ n int }

// Configure the length of generated programs.
//
// Default value is 200.
func ProgramLength(n int) Option {
	return programLengthOption{n: n}
}

type targetExamplesOption struct{ n int }

// Configure how many distinct failing examples the search collects
// before stopping early and handing the shortest one to the shrinker.
//
// Default value is 10. Several short candidates give the shrinker a
// better seed than a single long one.
func TargetExamples(n int) Option {
	return targetExamplesOption{n: n}
}

type seedOption struct{ seed int64 }

// Seed the random source used for operation selection and argument
// binding. Two runs with the same seed and grammar produce identical
// programs.
//
// Defaults to the current time.
func Seed(seed int64) Option {
	return seedOption{seed: seed}
}

type isolatedOption struct{}

// Run every program in a freshly spawned child process so that a
// subject that corrupts or aborts its process cannot take down the
// harness. Requires that the entry point routes through Main and that
// all concrete operation types are registered with operation.Register.
func Isolated() Option {
	return isolatedOption{}
}

type verboseOption struct{}

// Set the verbose flag to true.
//
// Prints diagnostic output, including stacks of failures observed
// while probing candidate programs, instead of suppressing it.
func Verbose() Option {
	return verboseOption{}
}

type silentOption struct{}

// Disable the human-readable report normally printed after a run.
func Silent() Option {
	return silentOption{}
}

type simulationOnlyOption struct{}

// Set the simulation flag to true.
//
// Trial runs will execute their program on a simulation context
// instead of a real one.
func SimulationOnly() Option {
	return simulationOnlyOption{}
}

type outputOption struct{ w io.Writer }

// Write the human-readable report to w instead of standard output.
func Output(w io.Writer) Option {
	return outputOption{w: w}
}

type loggerOption struct{ logger *zap.Logger }

// Use the provided logger for diagnostics.
//
// Defaults to a no-op logger; Main installs a real one.
func Logger(logger *zap.Logger) Option {
	return loggerOption{logger: logger}
}

type oracleOption struct{ o oracle.Oracle }

// Use the provided oracle instead of the built-in in-process or
// subprocess one.
func WithOracle(o oracle.Oracle) Option {
	return oracleOption{o: o}
}
