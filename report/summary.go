package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/agentverse/agentverse/llm"
	"github.com/agentverse/agentverse/store"
	"github.com/agentverse/agentverse/types"
)

const summarySystemMessage = "You are a helpful assistant that creates concise summaries."

// Summary is the outcome of a summarization request. Generated reports
// whether an LLM produced the text; the degraded statistics-only fallback
// sets it false.
type Summary struct {
	Text      string `json:"text"`
	Generated bool   `json:"generated"`
	Provider  string `json:"provider,omitempty"`
}

// Summarize produces a conversation summary for the session. Concurrent
// requests for the same session share one upstream call.
func (s *Service) Summarize(ctx context.Context, sessionID, userID string) (*Summary, error) {
	if cached, ok := s.cached(ctx, summaryCacheKey(sessionID)); ok {
		var sum Summary
		if err := json.Unmarshal([]byte(cached), &sum); err == nil {
			return &sum, nil
		}
	}

	v, err, _ := s.group.Do("summary:"+sessionID, func() (any, error) {
		return s.summarize(ctx, sessionID, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Summary), nil
}

func (s *Service) summarize(ctx context.Context, sessionID, userID string) (*Summary, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	turns, err := s.turns.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, types.NewError(types.ErrNoConversation, "no conversation to summarize")
	}
	if len(sess.Agents) == 0 {
		return nil, types.NewError(types.ErrNoAgents, "session has no participating agents")
	}

	first := sess.Agents[0]
	providerID := s.cfg.SummaryProvider
	if providerID == "" {
		providerID = first.Provider
	}
	model := s.cfg.SummaryModel
	if model == "" && strings.EqualFold(providerID, first.Provider) {
		model = first.Model
	}

	key, err := s.vault.Resolve(ctx, userID, providerID)
	if err != nil {
		if types.IsCode(err, types.ErrCredentialNotFound) {
			return s.fallbackNoCredential(sess, len(turns), providerID), nil
		}
		return nil, err
	}

	resp, err := s.gateway.Generate(ctx, providerID, &llm.GenerateRequest{
		System: summarySystemMessage,
		Prompt: summaryPrompt(sess, turns, s.cfg.MaxSummaryInput),
		APIKey: key,
		Model:  model,
	})
	if err != nil {
		s.logger.Warn("summary generation failed, using fallback",
			zap.String("session_id", sessionID),
			zap.String("provider", providerID),
			zap.Error(err),
		)
		return s.fallbackStats(sess, len(turns)), nil
	}

	sum := &Summary{Text: resp.Content, Generated: true, Provider: providerID}
	if data, err := json.Marshal(sum); err == nil {
		s.store(ctx, summaryCacheKey(sessionID), string(data))
	}
	return sum, nil
}

func summaryPrompt(sess *store.Session, turns []store.Turn, maxInput int) string {
	names := make(map[string]string, len(sess.Agents))
	for _, a := range sess.Agents {
		names[a.ID] = a.Name
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		name := names[t.AgentID]
		if name == "" {
			name = t.AgentID
		}
		lines = append(lines, name+": "+t.Response)
	}
	text := strings.Join(lines, "\n\n")
	if len(text) > maxInput {
		text = text[:maxInput]
	}

	return "Please provide a concise summary of the following conversation:\n\n" + text
}

func (s *Service) fallbackNoCredential(sess *store.Session, turnCount int, providerID string) *Summary {
	text := fmt.Sprintf(
		"Session Summary:\n\nTopic: %s\nTotal Turns: %d\n\n"+
			"This session contains %d conversation turns. To generate an AI-powered summary, "+
			"please add an API key for %s in the Vault.",
		sess.Topic, turnCount, turnCount, providerID,
	)
	return &Summary{Text: text, Generated: false}
}

func (s *Service) fallbackStats(sess *store.Session, turnCount int) *Summary {
	names := make([]string, 0, len(sess.Agents))
	for _, a := range sess.Agents {
		names = append(names, a.Name)
	}
	text := fmt.Sprintf(
		"Session Summary:\n\nTopic: %s\nTotal Turns: %d\n\nKey participants: %s",
		sess.Topic, turnCount, strings.Join(names, ", "),
	)
	return &Summary{Text: text, Generated: false}
}
