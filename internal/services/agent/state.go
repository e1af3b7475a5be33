package agent

import (
	"context"

	"github.com/ternarybob/respondeo/internal/models"
)

// State identifies one node of the reasoning state machine.
type State string

const (
	StateAnalyze        State = "analysis"
	StateRetrieve       State = "retrieval"
	StateReason         State = "reasoner"
	StateGradeAnswer    State = "grade_answer"
	StateGradeDocuments State = "grade_documents"
	StateRewriteQuery   State = "rewrite_query"
	StateRespond        State = "response"

	// stateDone terminates the driver loop
	stateDone State = ""
)

// nodeFunc mutates the agent state and returns the next state.
type nodeFunc func(ctx context.Context, state *models.AgentState) State

// routeAfterGrading is the pure routing decision between the grading nodes
// and either the terminal response or another reflection pass. It appends no
// reasoning step.
func routeAfterGrading(state *models.AgentState) State {
	if state.Error != "" {
		return StateRespond
	}
	if !state.Config.ReflectionEnabled ||
		state.ReflectionCount >= state.Config.MaxReflections ||
		!(state.NeedsMoreContext || state.NeedsAnswerRevision) {
		return StateRespond
	}
	return StateRewriteQuery
}
