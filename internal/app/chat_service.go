package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"casecounsel/internal/agent"
	"casecounsel/internal/retrieval"
	"casecounsel/internal/session"
)

var (
	ErrMessageEmpty = errors.New("message is required")

	// ErrConflictingContextInputs means both an uploaded document and raw
	// document text were supplied; the request is rejected before any
	// processing.
	ErrConflictingContextInputs = errors.New("supply either an uploaded document or user_doc_text, not both")

	// ErrModelUnavailable surfaces an exhausted retry budget against the
	// embedding or chat endpoint.
	ErrModelUnavailable = errors.New("language model unavailable")
)

// ChatService orchestrates one grounded answering request: transient
// context build, per-session serialization, the agent loop and the final
// response shape.
type ChatService struct {
	sessions  *session.Store
	agent     *agent.Agent
	transient *retrieval.TransientBuilder
}

type ChatInput struct {
	SessionID string
	Message   string
	TopK      int

	// At most one of the following may be set.
	UploadFilename string
	UploadData     []byte
	UserDocText    string
}

type ChatOutput struct {
	SessionID  string           `json:"session_id"`
	Answer     string           `json:"answer"`
	Citations  []agent.Citation `json:"citations"`
	Incomplete bool             `json:"incomplete"`
}

func NewChatService(sessions *session.Store, agnt *agent.Agent, transient *retrieval.TransientBuilder) *ChatService {
	return &ChatService{
		sessions:  sessions,
		agent:     agnt,
		transient: transient,
	}
}

func (s *ChatService) Chat(ctx context.Context, input ChatInput) (*ChatOutput, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return nil, ErrMessageEmpty
	}
	if len(input.UploadData) > 0 && strings.TrimSpace(input.UserDocText) != "" {
		return nil, ErrConflictingContextInputs
	}

	// Transient context lives only in this request; it is never shared
	// between sessions or written to the index.
	var transient *retrieval.TransientContext
	var err error
	switch {
	case len(input.UploadData) > 0:
		transient, err = s.transient.BuildFromUpload(ctx, input.UploadFilename, input.UploadData)
	case strings.TrimSpace(input.UserDocText) != "":
		transient, err = s.transient.BuildFromText(ctx, input.UserDocText)
	}
	if err != nil {
		if errors.Is(err, retrieval.ErrUnsupportedUpload) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	sess := s.sessions.GetOrCreate(input.SessionID)
	sess.Lock()
	defer sess.Unlock()

	result, err := s.agent.Answer(ctx, agent.Request{
		History:   sess.History(),
		Message:   message,
		Transient: transient,
		TopK:      input.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	sess.AppendTurn(message, result.Answer)

	citations := result.Citations
	if citations == nil {
		citations = []agent.Citation{}
	}
	return &ChatOutput{
		SessionID:  sess.ID,
		Answer:     result.Answer,
		Citations:  citations,
		Incomplete: result.Incomplete,
	}, nil
}
