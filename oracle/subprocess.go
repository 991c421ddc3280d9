package oracle

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime/debug"

	"go.uber.org/zap"

	"testmachine/operation"
)

// WorkerEnv marks a process as an isolation child. The harness sets it
// when spawning a child; entry points check IsWorker before doing
// anything else and hand control to Worker.
const WorkerEnv = "TESTMACHINE_WORKER"

// Exit codes of the isolation child. Nothing else crosses the process
// boundary besides the gob-encoded payload on stdin and this code.
const (
	exitPass = 0
	exitFail = 1
	// report-mode child found that the program no longer fails
	exitInconsistent = 2
)

// payload is what the parent streams to the child's stdin. Concrete
// operation types must be registered with operation.Register for the
// interface values to survive the encoding.
type payload struct {
	Report  bool
	Program operation.Program
}

// Subprocess runs every program in a freshly spawned child process and
// reads the verdict from its exit status. One child at a time, awaited
// immediately; the harness stays live even if the subject aborts the
// child outright.
type Subprocess struct {
	path    string
	args    []string
	verbose bool
	logger  *zap.Logger
}

// NewSubprocess creates a subprocess oracle that re-executes the
// current binary. The child is expected to detect WorkerEnv and call
// Worker. With verbose set the child inherits the parent's stderr so
// subject diagnostics stay visible.
func NewSubprocess(verbose bool, logger *zap.Logger) *Subprocess {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subprocess{
		path:    os.Args[0],
		verbose: verbose,
		logger:  logger,
	}
}

// SetCommand overrides the child command line. Used by tests that need
// to route the child through the test binary.
func (o *Subprocess) SetCommand(path string, args ...string) {
	o.path = path
	o.args = args
}

func (o *Subprocess) Fails(program operation.Program) (bool, error) {
	status, err := o.spawn(payload{Program: program}, nil)
	if err != nil {
		return false, err
	}
	return status != exitPass, nil
}

// Report replays the program in a child with trace printing enabled,
// writing the trace to w. It returns false if the child found that the
// program no longer fails, which the caller must treat as a harness
// defect.
func (o *Subprocess) Report(program operation.Program, w io.Writer) (bool, error) {
	status, err := o.spawn(payload{Report: true, Program: program}, w)
	if err != nil {
		return false, err
	}
	return status != exitInconsistent, nil
}

// spawn starts one child, streams the payload to it and blocks until
// it exits, mapping the exit status to an integer code.
func (o *Subprocess) spawn(pl payload, stdout io.Writer) (int, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(pl); err != nil {
		return 0, fmt.Errorf("oracle: encoding program for child: %w", err)
	}

	cmd := exec.Command(o.path, o.args...)
	cmd.Env = append(os.Environ(), WorkerEnv+"=1")
	cmd.Stdin = &buf
	if stdout != nil {
		cmd.Stdout = stdout
	}
	if o.verbose || pl.Report {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return exitPass, nil
	}
	// Any way the child dies is a subject verdict, including signal
	// death, where ExitCode reports -1. The error path is reserved for
	// not being able to run the child at all.
	if exitErr, ok := err.(*exec.ExitError); ok {
		status := exitErr.ExitCode()
		if status < 0 {
			o.logger.Debug("isolation child killed",
				zap.Int("length", len(pl.Program)),
				zap.String("state", exitErr.ProcessState.String()))
			return exitFail, nil
		}
		o.logger.Debug("isolation child reported failure",
			zap.Int("length", len(pl.Program)),
			zap.Int("status", status))
		return status, nil
	}
	return 0, fmt.Errorf("oracle: running isolation child: %w", err)
}

// IsWorker reports whether this process was spawned as an isolation
// child.
func IsWorker() bool {
	return os.Getenv(WorkerEnv) == "1"
}

// Worker is the child side of the process boundary. It decodes the
// payload from in, replays the program and returns the exit code for
// the process. In report mode it prints the compiled trace of a
// simulated replay to out before verifying the real one.
func Worker(newContext operation.Factory, in io.Reader, out io.Writer) int {
	var pl payload
	if err := gob.NewDecoder(in).Decode(&pl); err != nil {
		fmt.Fprintf(os.Stderr, "testmachine worker: decoding program: %v\n", err)
		return exitFail
	}

	if pl.Report {
		return reportWorker(newContext, pl.Program, out)
	}

	if err := Replay(newContext, pl.Program); err != nil {
		return exitFail
	}
	return exitPass
}

func reportWorker(newContext operation.Factory, program operation.Program, out io.Writer) int {
	// Simulated replay for the trace. A failure here only ends the
	// trace early.
	sim := newContext(true)
	simErr := safeRun(sim, program)
	for _, step := range sim.Log() {
		for _, stmt := range step.Op.Compile(step.Arguments, step.Results) {
			fmt.Fprintln(out, stmt)
		}
	}
	if simErr != nil {
		fmt.Fprintf(os.Stderr, "simulated replay stopped: %v\n", simErr)
	}

	err := Replay(newContext, program)
	if err == nil {
		fmt.Fprintln(os.Stderr, "this program should be failing but isn't")
		return exitInconsistent
	}
	if pe, ok := err.(PanicError); ok {
		fmt.Fprintf(os.Stderr, "%v\n%s", pe.Value, pe.Stack)
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	return exitPass
}

func safeRun(ctx operation.Context, program operation.Program) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = PanicError{Value: p, Stack: debug.Stack()}
		}
	}()
	return ctx.Run(program)
}
