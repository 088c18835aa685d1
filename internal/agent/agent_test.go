package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casecounsel/internal/ai"
	"casecounsel/internal/index"
)

// scriptedModel replays canned responses in order.
type scriptedModel struct {
	responses []string
	calls     int
}

func (m *scriptedModel) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	if m.calls >= len(m.responses) {
		return "", fmt.Errorf("script exhausted after %d calls", m.calls)
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

// fixedSearcher returns the same hits for every query and records calls.
type fixedSearcher struct {
	hits    []index.Hit
	queries []string
}

func (s *fixedSearcher) Search(ctx context.Context, query string, topK int) ([]index.Hit, error) {
	s.queries = append(s.queries, query)
	if topK < len(s.hits) {
		return s.hits[:topK], nil
	}
	return s.hits, nil
}

func evidenceHits() []index.Hit {
	return []index.Hit{
		{Passage: index.Passage{ID: 0, Filename: "smith.pdf", Page: 3, Text: "joint custody awarded"}, Score: 0.9},
		{Passage: index.Passage{ID: 1, Filename: "smith.pdf", Page: 5, Text: "visitation schedule"}, Score: 0.6},
	}
}

func TestAnswer_SearchThenFinal(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"action": "search_cases", "query": "smith custody"}`,
		`{"action": "final", "answer": "Joint custody was awarded (smith.pdf p.3)."}`,
	}}
	searcher := &fixedSearcher{hits: evidenceHits()}
	a := New(model, searcher, Config{MaxIterations: 6, ForceRetrieval: true, TopK: 6})

	result, err := a.Answer(context.Background(), Request{Message: "who got custody in smith?"})
	require.NoError(t, err)
	assert.Equal(t, "Joint custody was awarded (smith.pdf p.3).", result.Answer)
	assert.False(t, result.Incomplete)
	assert.Equal(t, 2, result.Steps)
	assert.Equal(t, []string{"smith custody"}, searcher.queries)

	require.Len(t, result.Citations, 2)
	assert.Equal(t, "smith.pdf", result.Citations[0].Filename)
	assert.Equal(t, 3, result.Citations[0].Page)
}

func TestAnswer_ForcedRetrievalBeforeUngroundedFinal(t *testing.T) {
	// The model answers immediately without searching; the guard retrieves
	// with the raw user message and gives the model one more turn.
	model := &scriptedModel{responses: []string{
		`{"action": "final", "answer": "ungrounded guess"}`,
		`{"action": "final", "answer": "Grounded now (smith.pdf p.3)."}`,
	}}
	searcher := &fixedSearcher{hits: evidenceHits()}
	a := New(model, searcher, Config{MaxIterations: 6, ForceRetrieval: true, TopK: 6})

	result, err := a.Answer(context.Background(), Request{Message: "who got custody?"})
	require.NoError(t, err)
	assert.Equal(t, "Grounded now (smith.pdf p.3).", result.Answer)
	assert.Equal(t, []string{"who got custody?"}, searcher.queries)
	assert.NotEmpty(t, result.Citations)
}

func TestAnswer_NoEvidenceAnswer(t *testing.T) {
	// Even the forced retrieval finds nothing, so the fixed refusal comes
	// back with no citations.
	model := &scriptedModel{responses: []string{
		`{"action": "final", "answer": "something made up"}`,
		`{"action": "final", "answer": "still made up"}`,
	}}
	searcher := &fixedSearcher{}
	a := New(model, searcher, Config{MaxIterations: 6, ForceRetrieval: true, TopK: 6})

	result, err := a.Answer(context.Background(), Request{Message: "what does case 42 say?"})
	require.NoError(t, err)
	assert.Equal(t, NoEvidenceAnswer, result.Answer)
	assert.Empty(t, result.Citations)
	assert.False(t, result.Incomplete)
}

func TestAnswer_ReplySkipsRetrieval(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"action": "reply", "answer": "Hello! How can I help with your cases?"}`,
	}}
	searcher := &fixedSearcher{}
	a := New(model, searcher, Config{MaxIterations: 6, ForceRetrieval: true, TopK: 6})

	result, err := a.Answer(context.Background(), Request{Message: "hi there"})
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help with your cases?", result.Answer)
	assert.Empty(t, result.Citations)
	assert.Empty(t, searcher.queries)
}

func TestAnswer_IterationLimitFlagsIncomplete(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"action": "search_cases", "query": "q1"}`,
		`{"action": "search_cases", "query": "q2"}`,
		`{"action": "search_cases", "query": "q3"}`,
	}}
	searcher := &fixedSearcher{hits: evidenceHits()}
	a := New(model, searcher, Config{MaxIterations: 3, ForceRetrieval: true, TopK: 6})

	result, err := a.Answer(context.Background(), Request{Message: "complex question"})
	require.NoError(t, err)
	assert.True(t, result.Incomplete)
	assert.NotEmpty(t, result.Answer)
	assert.Equal(t, 3, result.Steps)
	// Evidence gathered before exhaustion still yields citations.
	assert.NotEmpty(t, result.Citations)
}

func TestAnswer_SearchUploadWithoutAttachment(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"action": "search_upload", "query": "upload terms"}`,
		`{"action": "search_cases", "query": "case terms"}`,
		`{"action": "final", "answer": "From the index (smith.pdf p.3)."}`,
	}}
	searcher := &fixedSearcher{hits: evidenceHits()}
	a := New(model, searcher, Config{MaxIterations: 6, ForceRetrieval: true, TopK: 6})

	result, err := a.Answer(context.Background(), Request{Message: "check my document"})
	require.NoError(t, err)
	assert.Equal(t, "From the index (smith.pdf p.3).", result.Answer)
	assert.Equal(t, []string{"case terms"}, searcher.queries)
}

func TestAnswer_MalformedOutputTreatedAsFinal(t *testing.T) {
	model := &scriptedModel{responses: []string{
		`{"action": "search_cases", "query": "smith"}`,
		`Prose answer with no JSON at all, citing (smith.pdf p.3).`,
	}}
	searcher := &fixedSearcher{hits: evidenceHits()}
	a := New(model, searcher, Config{MaxIterations: 6, ForceRetrieval: true, TopK: 6})

	result, err := a.Answer(context.Background(), Request{Message: "who got custody?"})
	require.NoError(t, err)
	assert.Equal(t, "Prose answer with no JSON at all, citing (smith.pdf p.3).", result.Answer)
	assert.NotEmpty(t, result.Citations)
}

func TestAnswer_ModelErrorPropagates(t *testing.T) {
	model := &scriptedModel{} // empty script errors on first call
	a := New(model, &fixedSearcher{}, Config{MaxIterations: 6, TopK: 6})

	_, err := a.Answer(context.Background(), Request{Message: "anything"})
	assert.Error(t, err)
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantAction string
		wantErr    bool
	}{
		{
			name:       "bare object",
			content:    `{"action": "final", "answer": "done"}`,
			wantAction: "final",
		},
		{
			name:       "code fence",
			content:    "```json\n{\"action\": \"search_cases\", \"query\": \"x\"}\n```",
			wantAction: "search_cases",
		},
		{
			name:       "surrounding prose",
			content:    `I will search now. {"action": "search_cases", "query": "smith"} Done.`,
			wantAction: "search_cases",
		},
		{
			name:       "braces inside strings",
			content:    `{"action": "final", "answer": "see {exhibit} on p.3"}`,
			wantAction: "final",
		},
		{name: "no json", content: "plain prose", wantErr: true},
		{name: "missing action", content: `{"query": "x"}`, wantErr: true},
		{name: "unbalanced", content: `{"action": "final"`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dec, err := parseDecision(tc.content)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantAction, dec.Action)
		})
	}
}

func TestSystemPrompt_UploadVariant(t *testing.T) {
	assert.NotContains(t, systemPrompt(false), "search_upload")
	assert.Contains(t, systemPrompt(true), "search_upload")
}
