package models

// ConversationTurn is a single conversational exchange attached to a
// question run.
type ConversationTurn struct {
	Role     string                 `json:"role"` // "user", "assistant", or "tool"
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ReasoningStep is one append-only audit trail entry. Each state machine
// transition appends exactly one step, or zero on pure routing.
type ReasoningStep struct {
	Label    string                 `json:"label"`
	Detail   string                 `json:"detail"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AskConfig carries the immutable per-run parameters of one question.
type AskConfig struct {
	TopK              int      `json:"top_k"`
	NeighborSpan      int      `json:"neighbor_span"`
	DedupeFields      []string `json:"dedupe_fields"`
	MaxSubquestions   int      `json:"max_subquestions"`
	ReflectionEnabled bool     `json:"reflection_enabled"`
	MaxReflections    int      `json:"max_reflections"`
	MinCitations      int      `json:"min_citations"`
}

// DefaultAskConfig returns the ask defaults used when no configuration file
// overrides them.
func DefaultAskConfig() AskConfig {
	return AskConfig{
		TopK:              6,
		NeighborSpan:      1,
		DedupeFields:      []string{"source_path", "chunk_id"},
		MaxSubquestions:   3,
		ReflectionEnabled: true,
		MaxReflections:    2,
		MinCitations:      1,
	}
}

// AgentState is the single mutable aggregate threaded through the reasoning
// state machine. It is created fresh per incoming question, mutated by one
// node at a time, and discarded after the final response is emitted. It is
// never shared across concurrent questions.
type AgentState struct {
	RunID               string             `json:"run_id"`
	Question            string             `json:"question"`
	SubQuestions        []string           `json:"sub_questions,omitempty"`
	Conversation        []ConversationTurn `json:"conversation,omitempty"`
	RetrievedDocuments  []RetrievedMatch   `json:"retrieved_documents,omitempty"`
	Reasoning           []ReasoningStep    `json:"reasoning,omitempty"`
	Answer              string             `json:"answer,omitempty"`
	Citations           []string           `json:"citations,omitempty"`
	Error               string             `json:"error,omitempty"`
	ReflectionCount     int                `json:"reflection_count"`
	NeedsMoreContext    bool               `json:"needs_more_context"`
	NeedsAnswerRevision bool               `json:"needs_answer_revision"`
	ReflectionNotes     []string           `json:"reflection_notes,omitempty"`
	Config              AskConfig          `json:"config"`
}

// AddStep appends an audit step to the reasoning trail.
func (s *AgentState) AddStep(label, detail string, metadata map[string]interface{}) ReasoningStep {
	step := ReasoningStep{Label: label, Detail: detail, Metadata: metadata}
	s.Reasoning = append(s.Reasoning, step)
	return step
}

// AddTurn appends a conversation turn.
func (s *AgentState) AddTurn(role, content string, metadata map[string]interface{}) {
	s.Conversation = append(s.Conversation, ConversationTurn{Role: role, Content: content, Metadata: metadata})
}
