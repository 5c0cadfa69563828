// Package engine is the pure core of the quote flow: the input normalizer,
// the ordered rule chain that picks the next prompt, and the premium
// calculator. Nothing here performs I/O; external lookups are requested with
// PendingLookup and fed back through ResolveVIN and ResolveIdentity.
package engine

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/motor-quote-bfa-go/internal/domain"
	"github.com/boddenberg/motor-quote-bfa-go/internal/quote/catalog"
)

// Engine evaluates conversation turns against a catalog. It holds no
// per-session data and is safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
	rules   []rule
	guards  []guard
}

// Turn is the outcome of one processed user input.
type Turn struct {
	State   domain.State
	Prompt  domain.Prompt
	Command domain.Command
	Matched bool
}

// New creates an Engine over cat.
func New(cat *catalog.Catalog, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{catalog: cat, logger: logger}
	e.rules = e.buildRules()
	e.guards = e.buildGuards()
	return e
}

// Catalog returns the reference data the engine was built with.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// NextStep evaluates the rule chain against state and returns the prompt for
// the first matching rule. The state passed in is never modified; any fields
// the rule sets come back as a merge patch in DataCollected.
func (e *Engine) NextStep(state domain.State, cmd domain.Command) (domain.Prompt, error) {
	work := state.Clone()
	prompt := e.evaluate(&work, cmd)

	patch, err := diff(state, work)
	if err != nil {
		return domain.Prompt{}, fmt.Errorf("rule %s: %w", prompt.Rule, err)
	}
	prompt.DataCollected = patch
	return prompt, nil
}

// Apply merges the prompt's collected data into state.
func (e *Engine) Apply(state domain.State, prompt domain.Prompt) (domain.State, error) {
	if len(prompt.DataCollected) == 0 {
		return state.Clone(), nil
	}
	return MergeState(state, prompt.DataCollected)
}

// Respond computes the next prompt and returns the state with its collected data applied.
func (e *Engine) Respond(state domain.State, cmd domain.Command) (domain.State, domain.Prompt, error) {
	prompt, err := e.NextStep(state, cmd)
	if err != nil {
		return state, domain.Prompt{}, err
	}
	next, err := e.Apply(state, prompt)
	if err != nil {
		return state, domain.Prompt{}, err
	}
	return next, prompt, nil
}

// HandleTurn runs a full turn without external lookups: normalize, apply the
// command, respond. The service layer performs lookups between those steps.
func (e *Engine) HandleTurn(state domain.State, input string) (Turn, error) {
	normalized, cmd, matched := e.Normalize(state, input)
	normalized = e.ApplyCommand(normalized, cmd)

	next, prompt, err := e.Respond(normalized, cmd)
	if err != nil {
		return Turn{}, err
	}
	return Turn{State: next, Prompt: prompt, Command: cmd, Matched: matched}, nil
}

// MergeState applies an RFC 7386 merge patch onto state.
func MergeState(state domain.State, patch []byte) (domain.State, error) {
	doc, err := json.Marshal(state)
	if err != nil {
		return state, fmt.Errorf("encoding state: %w", err)
	}
	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return state, fmt.Errorf("merging state patch: %w", err)
	}
	var out domain.State
	if err := json.Unmarshal(merged, &out); err != nil {
		return state, fmt.Errorf("decoding merged state: %w", err)
	}
	return out, nil
}

func diff(before, after domain.State) (json.RawMessage, error) {
	a, err := json.Marshal(before)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(after)
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.CreateMergePatch(a, b)
	if err != nil {
		return nil, err
	}
	if string(patch) == "{}" {
		return nil, nil
	}
	return patch, nil
}
