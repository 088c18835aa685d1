// Package agent runs a bounded tool-use loop around the language model:
// the model decides between retrieving evidence and answering, and every
// substantive answer must be grounded in retrieved or transient passages.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"casecounsel/internal/ai"
	"casecounsel/internal/index"
	"casecounsel/internal/retrieval"
)

// State is the loop's explicit position; transitions are driven by the
// model's parsed decision, never by free-form dispatch.
type State int

const (
	StateDeciding State = iota
	StateRetrieving
	StateLookingUpTransient
	StateAnswering
	StateDone
)

const (
	actionSearchCases  = "search_cases"
	actionSearchUpload = "search_upload"
	actionFinal        = "final"
	actionReply        = "reply"
)

// NoEvidenceAnswer is returned when neither retrieval nor transient lookup
// produced passages above the relevance bar for a substantive question.
const NoEvidenceAnswer = "I could not find supporting evidence in the indexed case documents for this question, so I cannot give a grounded answer."

const incompleteAnswerFallback = "I could not finish reasoning about this question within the allotted steps. Based on the evidence gathered so far, no complete answer is available."

// Completer is the slice of the AI client the loop needs.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// CaseSearcher searches the persisted index.
type CaseSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]index.Hit, error)
}

type Config struct {
	// MaxIterations bounds the number of model calls per request.
	MaxIterations int
	// ForceRetrieval guards the grounding policy structurally: a final
	// answer offered with no evidence gathered triggers one retrieval
	// with the user's message before the answer is accepted.
	ForceRetrieval bool
	TopK           int
}

type Agent struct {
	model    Completer
	searcher CaseSearcher
	cfg      Config
}

// Result is the outcome of one answering loop.
type Result struct {
	Answer     string
	Citations  []Citation
	Incomplete bool
	Steps      int
}

func New(model Completer, searcher CaseSearcher, cfg Config) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 6
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 6
	}
	return &Agent{model: model, searcher: searcher, cfg: cfg}
}

type decision struct {
	Action string `json:"action"`
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// Request is one answering run. History is the session's prior turns;
// Transient is the request's uploaded context, nil when absent; TopK of 0
// falls back to the configured default.
type Request struct {
	History   []ai.ChatMessage
	Message   string
	Transient *retrieval.TransientContext
	TopK      int
}

// Answer runs the loop for one user message. Reaching the iteration bound
// is not an error: the result is flagged incomplete instead.
func (a *Agent) Answer(ctx context.Context, req Request) (*Result, error) {
	message := req.Message
	transient := req.Transient
	topK := req.TopK
	if topK <= 0 {
		topK = a.cfg.TopK
	}

	messages := make([]ai.ChatMessage, 0, len(req.History)+2)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: systemPrompt(!transient.Empty())})
	messages = append(messages, req.History...)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: message})

	var evidence []index.Hit
	forced := false
	lastAnswer := ""
	state := StateDeciding

	for step := 1; step <= a.cfg.MaxIterations; step++ {
		if state != StateDeciding {
			return nil, fmt.Errorf("agent loop in unexpected state %d", state)
		}

		content, err := a.model.Complete(ctx, messages)
		if err != nil {
			return nil, fmt.Errorf("model call failed: %w", err)
		}
		messages = append(messages, ai.ChatMessage{Role: ai.RoleAssistant, Content: content})

		dec, perr := parseDecision(content)
		if perr != nil {
			// Malformed step: with evidence in hand, read it as the answer;
			// without, fall through to the grounding guard.
			dec = decision{Action: actionFinal, Answer: strings.TrimSpace(content)}
		}

		switch dec.Action {
		case actionSearchCases:
			state = StateRetrieving
			hits, err := a.searcher.Search(ctx, dec.Query, topK)
			if err != nil {
				return nil, fmt.Errorf("case retrieval failed: %w", err)
			}
			evidence = append(evidence, hits...)
			messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: formatObservation("case index", hits)})
			state = StateDeciding

		case actionSearchUpload:
			state = StateLookingUpTransient
			if transient.Empty() {
				messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: "Observation: no document was attached to this request."})
				state = StateDeciding
				continue
			}
			hits, err := transient.Search(ctx, dec.Query, topK)
			if err != nil {
				return nil, fmt.Errorf("transient lookup failed: %w", err)
			}
			evidence = append(evidence, hits...)
			messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: formatObservation("attached document", hits)})
			state = StateDeciding

		case actionReply:
			state = StateDone
			return &Result{Answer: strings.TrimSpace(dec.Answer), Steps: step}, nil

		case actionFinal:
			state = StateAnswering
			lastAnswer = strings.TrimSpace(dec.Answer)
			if len(evidence) == 0 {
				if a.cfg.ForceRetrieval && !forced {
					// Grounding guard: retrieve once with the raw user
					// message before accepting an ungrounded answer.
					forced = true
					hits, err := a.lookupBoth(ctx, message, transient, topK)
					if err != nil {
						return nil, err
					}
					evidence = append(evidence, hits...)
					messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: formatObservation("case index", hits)})
					state = StateDeciding
					continue
				}
				state = StateDone
				return &Result{Answer: NoEvidenceAnswer, Steps: step}, nil
			}
			state = StateDone
			return &Result{
				Answer:    lastAnswer,
				Citations: ResolveCitations(evidence),
				Steps:     step,
			}, nil

		default:
			messages = append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: fmt.Sprintf("Observation: unknown action %q. Respond with one of the documented JSON actions.", dec.Action)})
			state = StateDeciding
		}
	}

	// Iteration bound reached: degrade to a flagged best-effort answer.
	answer := lastAnswer
	if answer == "" {
		answer = incompleteAnswerFallback
	}
	return &Result{
		Answer:     answer,
		Citations:  ResolveCitations(evidence),
		Incomplete: true,
		Steps:      a.cfg.MaxIterations,
	}, nil
}

func (a *Agent) lookupBoth(ctx context.Context, query string, transient *retrieval.TransientContext, topK int) ([]index.Hit, error) {
	hits, err := a.searcher.Search(ctx, query, topK)
	if err != nil {
		return nil, fmt.Errorf("case retrieval failed: %w", err)
	}
	if !transient.Empty() {
		more, err := transient.Search(ctx, query, topK)
		if err != nil {
			return nil, fmt.Errorf("transient lookup failed: %w", err)
		}
		hits = append(hits, more...)
	}
	return hits, nil
}

// parseDecision extracts the first JSON object from the model output. Code
// fences and surrounding prose are tolerated.
func parseDecision(content string) (decision, error) {
	var dec decision
	raw := extractJSONObject(content)
	if raw == "" {
		return dec, fmt.Errorf("no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(raw), &dec); err != nil {
		return dec, fmt.Errorf("decode decision failed: %w", err)
	}
	if dec.Action == "" {
		return dec, fmt.Errorf("decision has no action")
	}
	return dec, nil
}

func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
