package testmachine

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"testmachine/language"
	"testmachine/operation"
)

func TestFindFailingProgramBudgetExhausted(t *testing.T) {
	m := New(newTestContext, Silent(), MaxAttempts(10), ProgramLength(5), Seed(1))
	m.Operations(rndPush{m.Rand()})

	_, err := m.findFailingProgram()
	var nf NoFailingProgramError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NoFailingProgramError, got %v", err)
	}
	if nf.Attempts != 10 || nf.Length != 5 {
		t.Errorf("unexpected error contents: %+v", nf)
	}
}

func TestRunReportsBudgetExhaustion(t *testing.T) {
	var out bytes.Buffer
	m := New(newTestContext, Output(&out), MaxAttempts(5), ProgramLength(5), Seed(1))
	m.Operations(rndPush{m.Rand()})

	minimal, err := m.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if minimal != nil {
		t.Fatalf("expected no program, got length %v", len(minimal))
	}
	if !strings.Contains(out.String(), "unable to find a failing program") {
		t.Errorf("expected a budget exhaustion message, got %q", out.String())
	}
}

func TestFindFailingProgramStopsEarly(t *testing.T) {
	m := New(newTestContext, Silent(), MaxAttempts(100), ProgramLength(4), TargetExamples(3), Seed(1))
	gen := &countingLanguage{inner: language.Operations(m.Rand(), popOp{})}
	m.Add(gen)

	best, err := m.findFailingProgram()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(best) != 1 {
		t.Errorf("expected the best example to have length 1, got %v", len(best))
	}
	// Every attempt fails immediately, so exactly targetExamples
	// attempts of progLength generations each should have happened.
	if gen.calls != 3*4 {
		t.Errorf("expected 12 generation calls, got %v", gen.calls)
	}
}

func TestFindFailingProgramKeepsShortest(t *testing.T) {
	// Failure thresholds shrink as the oracle sees more programs, so
	// later examples are shorter; the fold must keep the shortest.
	lengths := []int{}
	orc := &stubOracle{}
	orc.fails = func(p operation.Program) bool {
		lengths = append(lengths, len(p))
		return len(p) >= 1
	}
	m := New(newTestContext, Silent(), WithOracle(orc), MaxAttempts(10), ProgramLength(3), TargetExamples(2), Seed(1))
	m.Operations(rndPush{m.Rand()})

	best, err := m.findFailingProgram()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, l := range lengths {
		if l > 0 && len(best) > l {
			t.Fatalf("best example of length %v is longer than a seen example of length %v", len(best), l)
		}
	}
}

func TestGenerateProgramConditionedOnState(t *testing.T) {
	m := New(newTestContext, Silent(), ProgramLength(20), Seed(7))
	m.Operations(rndPush{m.Rand()}, gatedPopOp{})

	program, err := m.generateProgram()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(program) != 20 {
		t.Fatalf("expected 20 operations, got %v", len(program))
	}
	// A gated pop can only have been generated when the simulated
	// stack was non-empty, so replaying on a real context never
	// underflows.
	ctx := newTestContext(false)
	if err := ctx.Run(program); err != nil {
		t.Errorf("generated program is not structurally valid: %v", err)
	}
}

type countingLanguage struct {
	inner language.Language
	calls int
}

func (c *countingLanguage) Generate(ctx operation.Context) (operation.Operation, error) {
	c.calls++
	return c.inner.Generate(ctx)
}
