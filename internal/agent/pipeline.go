package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// StepFunc computes a partial state update from the current state.
type StepFunc func(ctx context.Context, state State) (Update, error)

// Step is a named stage of a Pipeline.
type Step struct {
	Name string
	Run  StepFunc
}

// Pipeline runs its steps in order, merging each step's Update into the state
// before the next one starts.
type Pipeline struct {
	steps  []Step
	logger zerolog.Logger
}

func NewPipeline(logger zerolog.Logger, steps ...Step) *Pipeline {
	return &Pipeline{steps: steps, logger: logger}
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes every step. The first step error stops the pipeline and is
// returned with the state reached so far.
func (p *Pipeline) Run(ctx context.Context, state State) (State, error) {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		start := time.Now()
		update, err := step.Run(ctx, state)
		if err != nil {
			return state, errors.Wrapf(err, "step %s", step.Name)
		}
		state = state.Apply(update)

		p.logger.Debug().
			Str("step", step.Name).
			Str("city_name", state.CityName).
			Int("messages", len(state.Messages)).
			Dur("elapsed", time.Since(start)).
			Msg("Step completed")
	}
	return state, nil
}

// Mermaid renders the pipeline as a Mermaid flowchart.
func (p *Pipeline) Mermaid() string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	b.WriteString("\t__start__([start])\n")
	for _, name := range p.Steps() {
		fmt.Fprintf(&b, "\t%s(%s)\n", name, name)
	}
	b.WriteString("\t__end__([end])\n")

	prev := "__start__"
	for _, name := range p.Steps() {
		fmt.Fprintf(&b, "\t%s --> %s\n", prev, name)
		prev = name
	}
	fmt.Fprintf(&b, "\t%s --> __end__\n", prev)
	return b.String()
}
