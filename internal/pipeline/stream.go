package pipeline

import "context"

// Stage identifies a progress event in a streaming run
type Stage string

const (
	StageStart          Stage = "start"
	StageSemanticLookup Stage = "semantic_lookup"
	StageGenerate       Stage = "generate"
	StageValidate       Stage = "validate"
	StageCacheLookup    Stage = "cache_lookup"
	StageExecute        Stage = "execute"
	StageRecover        Stage = "recover"
	StageDone           Stage = "done"
)

// Event is one progress notification. The terminal done event carries
// the final result; every other event carries only progress detail
type Event struct {
	Stage   Stage
	Message string
	Detail  string
	Result  *Result
}

// RunStream answers one question while reporting progress on the
// returned channel. The channel is closed after exactly one done event
func (p *Pipeline) RunStream(ctx context.Context, question string) <-chan Event {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		_, _ = p.run(ctx, question, func(event Event) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		})
	}()

	return events
}
