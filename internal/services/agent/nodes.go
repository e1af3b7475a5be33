package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/respondeo/internal/interfaces"
	"github.com/ternarybob/respondeo/internal/models"
	"github.com/ternarybob/respondeo/internal/services/retrieval"
)

const (
	// maxContextChars bounds each retrieved match's text before reasoning
	maxContextChars = 1200

	// minContextResults is the floor on retrieved documents below which the
	// document grader requests more context
	minContextResults = 2

	noContextAnswer = "I could not locate relevant context in the vector store."
)

var sentenceSplitPattern = regexp.MustCompile(`[?!.]`)

// analyzeNode normalizes the question, decomposes it into sub-questions, and
// opens the conversation.
func (m *Machine) analyzeNode(ctx context.Context, state *models.AgentState) State {
	question := normalizeQuestion(state.Question)
	state.Question = question
	state.SubQuestions = generateSubQuestions(question, state.Config.MaxSubquestions)

	state.AddTurn("user", question, map[string]interface{}{"type": "question"})
	step := state.AddStep("analysis",
		fmt.Sprintf("Generated %d sub-question(s) for retrieval.", len(state.SubQuestions)),
		map[string]interface{}{"sub_questions": state.SubQuestions})
	m.emitStep(ctx, state, step)

	return StateRetrieve
}

// retrieveNode runs one retrieval pass. A backend failure is captured into
// state.Error; every later node short-circuits on it.
func (m *Machine) retrieveNode(ctx context.Context, state *models.AgentState) State {
	prompts := state.SubQuestions
	if len(prompts) == 0 {
		prompts = []string{state.Question}
	}

	matches, err := m.retriever.Retrieve(ctx, prompts, state.Config)
	if err != nil {
		state.Error = err.Error()
		step := state.AddStep("retrieval_error", "Vector index query failed.",
			map[string]interface{}{"exception": err.Error()})
		m.emitStep(ctx, state, step)
		return StateReason
	}

	documents := make([]models.RetrievedMatch, 0, len(matches))
	for _, match := range matches {
		text := truncateContext(match.Text, maxContextChars)
		documents = append(documents, models.RetrievedMatch{
			Text:     text,
			Score:    match.Score,
			Metadata: match.Metadata,
		})
	}
	state.RetrievedDocuments = documents

	step := state.AddStep("retrieval",
		fmt.Sprintf("Retrieved %d document chunk(s) for reasoning.", len(documents)),
		map[string]interface{}{
			"top_k":         state.Config.TopK,
			"neighbor_span": state.Config.NeighborSpan,
			"sources":       len(uniqueSources(documents)),
		})
	m.emitStep(ctx, state, step)

	return StateReason
}

// reasonNode drafts an answer from the retrieved context via the responder,
// falling back to the deterministic extractive summary on responder failure.
func (m *Machine) reasonNode(ctx context.Context, state *models.AgentState) State {
	if state.Error != "" {
		return StateGradeAnswer
	}

	contextBlock := retrieval.FormatForResponder(state.RetrievedDocuments)
	if strings.TrimSpace(contextBlock) == "" {
		state.Answer = noContextAnswer
		step := state.AddStep("reasoner", "No context available; returned fallback answer.", nil)
		m.emitStep(ctx, state, step)
		return StateGradeAnswer
	}

	req := &interfaces.RespondRequest{
		Question:     state.Question,
		Context:      contextBlock,
		Instructions: buildInstructions(state.ReflectionNotes),
		History:      conversationHistory(state),
		Matches:      state.RetrievedDocuments,
	}

	answer, err := m.responder.Respond(ctx, req)
	if err != nil {
		m.logger.Warn().Err(err).Str("run_id", state.RunID).Msg("Responder failed; using extractive fallback")
		answer, _ = m.fallback.Respond(ctx, req)
	}
	state.Answer = strings.TrimSpace(answer)

	step := state.AddStep("reasoner", "Generated a draft response from retrieved context.",
		map[string]interface{}{
			"context_tokens": len(strings.Fields(contextBlock)),
			"answer_tokens":  len(strings.Fields(state.Answer)),
		})
	m.emitStep(ctx, state, step)

	return StateGradeAnswer
}

// gradeAnswerNode evaluates the draft for completeness and citation
// sufficiency. Citation markers are extracted from the draft with the same
// pattern the response node uses.
func (m *Machine) gradeAnswerNode(ctx context.Context, state *models.AgentState) State {
	if state.Error != "" {
		return StateGradeDocuments
	}

	answer := strings.TrimSpace(state.Answer)
	citations := ExtractCitations(answer)

	needsContext := answer == ""
	needsRevision := answer != "" &&
		state.Config.MinCitations > 0 &&
		len(citations) < state.Config.MinCitations

	state.NeedsMoreContext = state.NeedsMoreContext || needsContext
	state.NeedsAnswerRevision = needsRevision

	step := state.AddStep("grade_answer", "Evaluated draft answer for completeness and citations.",
		map[string]interface{}{
			"has_answer":            answer != "",
			"citation_count":        len(citations),
			"needs_more_context":    needsContext,
			"needs_answer_revision": needsRevision,
		})
	m.emitStep(ctx, state, step)

	return StateGradeDocuments
}

// gradeDocumentsNode checks retrieved context volume against the citation
// requirement.
func (m *Machine) gradeDocumentsNode(ctx context.Context, state *models.AgentState) State {
	if state.Error != "" {
		return routeAfterGrading(state)
	}

	threshold := minContextResults
	if state.Config.MinCitations > threshold {
		threshold = state.Config.MinCitations
	}
	if len(state.RetrievedDocuments) < threshold {
		state.NeedsMoreContext = true
	}

	step := state.AddStep("grade_documents", "Checked retrieved context diversity.",
		map[string]interface{}{
			"document_count":     len(state.RetrievedDocuments),
			"unique_sources":     len(uniqueSources(state.RetrievedDocuments)),
			"needs_more_context": state.NeedsMoreContext,
		})
	m.emitStep(ctx, state, step)

	return routeAfterGrading(state)
}

// rewriteQueryNode spends one reflection: follow-up queries are generated
// from the need flags and retrieval runs again. When reflection is disabled
// or the budget is exhausted it clears the flags and forces the terminal
// response without incrementing the counter.
func (m *Machine) rewriteQueryNode(ctx context.Context, state *models.AgentState) State {
	if !state.Config.ReflectionEnabled {
		state.NeedsMoreContext = false
		state.NeedsAnswerRevision = false
		return StateRespond
	}

	if state.ReflectionCount >= state.Config.MaxReflections {
		state.NeedsMoreContext = false
		state.NeedsAnswerRevision = false
		step := state.AddStep("rewrite_query", "Reached reflection limit; proceeding with current context.",
			map[string]interface{}{"reflection_count": state.ReflectionCount})
		m.emitStep(ctx, state, step)
		return StateRespond
	}

	var followups []string
	if state.NeedsMoreContext {
		followups = append(followups,
			fmt.Sprintf("Provide additional background and supporting facts for: %s", state.Question))
	}
	if state.NeedsAnswerRevision {
		followups = append(followups,
			fmt.Sprintf("List the key evidence with citations for: %s", state.Question))
	}
	if len(followups) == 0 {
		followups = append(followups, state.Question)
	}

	state.ReflectionCount++
	state.SubQuestions = append([]string{state.Question}, followups...)
	state.NeedsMoreContext = false
	state.NeedsAnswerRevision = false

	state.ReflectionNotes = append(state.ReflectionNotes, followups...)
	if len(state.ReflectionNotes) > 5 {
		state.ReflectionNotes = state.ReflectionNotes[len(state.ReflectionNotes)-5:]
	}

	step := state.AddStep("rewrite_query", "Generated follow-up queries for additional retrieval.",
		map[string]interface{}{
			"reflection_count": state.ReflectionCount,
			"followups":        followups,
		})
	m.emitStep(ctx, state, step)

	return StateRetrieve
}

// respondNode assembles the externally visible result: citations extracted
// from the final answer and the closing assistant turn.
func (m *Machine) respondNode(ctx context.Context, state *models.AgentState) State {
	citations := ExtractCitations(state.Answer)
	state.Citations = citations

	state.AddTurn("assistant", state.Answer, map[string]interface{}{"citations": citations})
	step := state.AddStep("response", "Formatted final response with extracted citations.",
		map[string]interface{}{"citations": citations})
	m.emitStep(ctx, state, step)

	return stateDone
}

func normalizeQuestion(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// truncateContext caps a retrieved text at max characters, not bytes, so a
// multi-byte rune on the boundary is never split into invalid UTF-8.
func truncateContext(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:max]), " \t\n") + "..."
}

// generateSubQuestions splits a composite question on sentence terminators
// into up to max candidates, each coerced to end with "?".
func generateSubQuestions(question string, max int) []string {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil
	}

	var refined []string
	for _, part := range sentenceSplitPattern.Split(question, -1) {
		candidate := normalizeQuestion(part)
		if candidate == "" {
			continue
		}
		if !strings.HasSuffix(candidate, "?") {
			candidate += "?"
		}
		refined = append(refined, candidate)
		if len(refined) >= max {
			break
		}
	}

	if len(refined) == 0 {
		if !strings.HasSuffix(question, "?") {
			question += "?"
		}
		refined = append(refined, question)
	}
	return refined
}

// buildInstructions constrains style and length, appending the three most
// recent reflection focus areas when present.
func buildInstructions(reflectionNotes []string) string {
	instructions := "Use numbered citations and keep answers under 200 words."
	if len(reflectionNotes) > 0 {
		recent := reflectionNotes
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		instructions += fmt.Sprintf(" Address the following focus areas: %s.", strings.Join(recent, "; "))
	}
	return instructions
}

func conversationHistory(state *models.AgentState) []interfaces.Message {
	history := make([]interfaces.Message, 0, len(state.Conversation))
	for _, turn := range state.Conversation {
		history = append(history, interfaces.Message{Role: turn.Role, Content: turn.Content})
	}
	return history
}

func uniqueSources(matches []models.RetrievedMatch) map[string]struct{} {
	sources := make(map[string]struct{}, len(matches))
	for i := range matches {
		sources[matches[i].SourceKey()] = struct{}{}
	}
	return sources
}
