package language

import (
	"errors"
	"math/rand"

	"testmachine/operation"
)

// A Language produces one operation conditioned on the current context
// state. Concrete grammars implement it directly or are adapted from
// prototype operations with Operations.
type Language interface {
	Generate(ctx operation.Context) (operation.Operation, error)
}

var NoApplicableOperationError = errors.New("language: no operation is applicable in the current state")

// A Selector is a weighted random choice over registered languages.
//
// All randomness in the engine is drawn through the selector, so a
// fixed seed makes search and shrink runs reproducible.
type Selector struct {
	rand    *rand.Rand
	entries []entry
	total   int
}

type entry struct {
	lang   Language
	weight int
}

// NewSelector creates a selector seeded with the provided seed.
func NewSelector(seed int64) *Selector {
	return NewSelectorWithRand(rand.New(rand.NewSource(seed)))
}

// NewSelectorWithRand creates a selector drawing from an existing
// random source, so selection and argument binding can share one seed.
func NewSelectorWithRand(r *rand.Rand) *Selector {
	return &Selector{
		rand:    r,
		entries: make([]entry, 0),
	}
}

// Register adds a language with the given selection weight. A weight
// below one counts as one.
func (s *Selector) Register(lang Language, weight int) {
	if weight < 1 {
		weight = 1
	}
	s.entries = append(s.entries, entry{lang: lang, weight: weight})
	s.total += weight
}

// Rand exposes the selector's random source so languages can share it
// when binding arguments.
func (s *Selector) Rand() *rand.Rand {
	return s.rand
}

// Generate picks a language by weight and asks it for an operation.
func (s *Selector) Generate(ctx operation.Context) (operation.Operation, error) {
	if len(s.entries) == 0 {
		return nil, errors.New("language: no languages registered")
	}
	n := s.rand.Intn(s.total)
	for _, e := range s.entries {
		n -= e.weight
		if n < 0 {
			return e.lang.Generate(ctx)
		}
	}
	// Unreachable while total matches the sum of the weights.
	return s.entries[len(s.entries)-1].lang.Generate(ctx)
}

// Operations adapts a set of prototype operations into a language.
//
// Generate picks uniformly among the prototypes that report themselves
// applicable for the current heights and asks the chosen prototype to
// bind its arguments. This is what makes generated programs
// structurally valid by construction.
func Operations(r *rand.Rand, ops ...operation.Operation) Language {
	return &operationSet{rand: r, ops: ops}
}

type operationSet struct {
	rand *rand.Rand
	ops  []operation.Operation
}

func (os *operationSet) Generate(ctx operation.Context) (operation.Operation, error) {
	heights := ctx.Heights()
	applicable := make([]operation.Operation, 0, len(os.ops))
	for _, op := range os.ops {
		if op.Applicable(heights) {
			applicable = append(applicable, op)
		}
	}
	if len(applicable) == 0 {
		return nil, NoApplicableOperationError
	}
	proto := applicable[os.rand.Intn(len(applicable))]
	return proto.Generate(ctx)
}
