package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentverse/agentverse/store"
)

const rule = "=================================================="

// Transcript renders the session as plain text suitable for download.
func (s *Service) Transcript(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	turns, err := s.turns.History(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return renderTranscript(sess, turns), nil
}

func renderTranscript(sess *store.Session, turns []store.Turn) string {
	names := make(map[string]string, len(sess.Agents))
	participants := make([]string, 0, len(sess.Agents))
	for _, a := range sess.Agents {
		names[a.ID] = a.Name
		participants = append(participants, a.Name)
	}

	var b strings.Builder
	b.WriteString("AgentVerse Session Transcript\n")
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "Session ID: %s\n", sess.ID)
	fmt.Fprintf(&b, "Topic: %s\n", sess.Topic)
	fmt.Fprintf(&b, "Created: %s\n", sess.CreatedAt.Format(timeLayout))
	fmt.Fprintf(&b, "Participants: %s\n", strings.Join(participants, ", "))
	b.WriteString("\n" + rule + "\n\n")

	for i, t := range turns {
		name := names[t.AgentID]
		if name == "" {
			name = t.AgentID
		}
		fmt.Fprintf(&b, "Turn %d - %s\n", i+1, name)
		b.WriteString(strings.Repeat("-", 50) + "\n")
		fmt.Fprintf(&b, "Time: %s\n\n", t.CreatedAt.Format(timeLayout))
		fmt.Fprintf(&b, "%s\n\n", t.Response)
		b.WriteString(rule + "\n\n")
	}

	return b.String()
}
