package agent

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
)

// Retriever is the slice of the retrieval coordinator the state machine
// consumes.
type Retriever interface {
	Retrieve(ctx context.Context, subQuestions []string, cfg models.AskConfig) ([]models.RetrievedMatch, error)
}

// Machine drives the per-question lifecycle: question analysis, retrieval,
// draft answer generation, answer grading, document grading, conditional
// query rewriting, and final response assembly.
//
// The reflection loop terminates: ReflectionCount is strictly monotonic and
// bounded by MaxReflections, routeAfterGrading only re-enters RewriteQuery
// while the budget holds, and RewriteQuery either increments the counter or
// forces the terminal response. The loop body runs at most
// MaxReflections + 1 times.
type Machine struct {
	retriever Retriever
	responder interfaces.Responder
	fallback  interfaces.Responder
	events    interfaces.EventService
	logger    arbor.ILogger
}

// NewMachine creates a reasoning state machine. The fallback responder must
// be deterministic and infallible; it is consulted whenever the primary
// responder fails. A nil events service disables progress notification.
func NewMachine(retriever Retriever, responder, fallback interfaces.Responder, events interfaces.EventService, logger arbor.ILogger) *Machine {
	return &Machine{
		retriever: retriever,
		responder: responder,
		fallback:  fallback,
		events:    events,
		logger:    logger,
	}
}

// Ask runs one question through the state machine and returns the final
// state. The state is exclusively owned by this call; concurrent questions
// get fully isolated pipelines sharing only the read side of the index.
func (m *Machine) Ask(ctx context.Context, question string, cfg models.AskConfig) *models.AgentState {
	state := &models.AgentState{
		RunID:    common.NewRunID(),
		Question: question,
		Config:   cfg,
	}

	nodes := map[State]nodeFunc{
		StateAnalyze:        m.analyzeNode,
		StateRetrieve:       m.retrieveNode,
		StateReason:         m.reasonNode,
		StateGradeAnswer:    m.gradeAnswerNode,
		StateGradeDocuments: m.gradeDocumentsNode,
		StateRewriteQuery:   m.rewriteQueryNode,
		StateRespond:        m.respondNode,
	}

	current := StateAnalyze
	for current != stateDone {
		node, ok := nodes[current]
		if !ok {
			m.logger.Error().Str("state", string(current)).Msg("Unknown state; terminating run")
			break
		}
		next := node(ctx, state)

		m.logger.Debug().
			Str("run_id", state.RunID).
			Str("state", string(current)).
			Str("next", string(next)).
			Msg("State transition")

		current = next
	}

	return state
}

// emitStep publishes an incremental progress event for an appended reasoning
// step. Delivery is fire-and-forget; failures are logged and swallowed.
func (m *Machine) emitStep(ctx context.Context, state *models.AgentState, step models.ReasoningStep) {
	if m.events == nil {
		return
	}
	err := m.events.Publish(ctx, interfaces.Event{
		Type: interfaces.EventReasoningStep,
		Payload: interfaces.ProgressEvent{
			RunID:    state.RunID,
			Label:    step.Label,
			Detail:   step.Detail,
			Metadata: step.Metadata,
		},
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("label", step.Label).Msg("Progress event delivery failed")
	}
}
