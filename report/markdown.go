package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentverse/agentverse/store"
)

const timeLayout = "2006-01-02 15:04:05"

// Markdown renders the session analysis report. A session with no turns
// yields a fixed placeholder instead of an empty document.
func (s *Service) Markdown(ctx context.Context, sessionID string) (string, error) {
	if doc, ok := s.cached(ctx, markdownCacheKey(sessionID)); ok {
		return doc, nil
	}

	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	turns, err := s.turns.History(ctx, sessionID)
	if err != nil {
		return "", err
	}

	if len(turns) == 0 {
		return "No conversation to analyze.", nil
	}

	doc := renderMarkdown(sess, turns)
	s.store(ctx, markdownCacheKey(sessionID), doc)
	return doc, nil
}

type agentStats struct {
	turns       int
	totalLength int
}

func renderMarkdown(sess *store.Session, turns []store.Turn) string {
	stats := make(map[string]*agentStats, len(sess.Agents))
	names := make(map[string]string, len(sess.Agents))
	for _, a := range sess.Agents {
		stats[a.ID] = &agentStats{}
		names[a.ID] = a.Name
	}
	for _, t := range turns {
		st, ok := stats[t.AgentID]
		if !ok {
			st = &agentStats{}
			stats[t.AgentID] = st
			names[t.AgentID] = t.AgentID
		}
		st.turns++
		st.totalLength += len(t.Response)
	}

	var b strings.Builder
	b.WriteString("# Session Analysis Report\n\n")
	fmt.Fprintf(&b, "**Session ID:** %s\n\n", sess.ID)
	fmt.Fprintf(&b, "**Topic:** %s\n\n", sess.Topic)
	fmt.Fprintf(&b, "**Status:** %s\n\n", sess.Status)
	fmt.Fprintf(&b, "**Total Turns:** %d / %d\n\n", len(turns), sess.MaxTurns)

	b.WriteString("## Agent Participation\n\n")
	for _, a := range sess.Agents {
		st := stats[a.ID]
		avg := 0
		if st.turns > 0 {
			avg = st.totalLength / st.turns
		}
		fmt.Fprintf(&b, "### %s\n", a.Name)
		fmt.Fprintf(&b, "- Turns: %d\n", st.turns)
		fmt.Fprintf(&b, "- Average Response Length: %d characters\n\n", avg)
	}

	b.WriteString("## Timeline\n\n")
	fmt.Fprintf(&b, "- Started: %s\n", sess.CreatedAt.Format(timeLayout))
	fmt.Fprintf(&b, "- Last Activity: %s\n\n", turns[len(turns)-1].CreatedAt.Format(timeLayout))

	return b.String()
}
