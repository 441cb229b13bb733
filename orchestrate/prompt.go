package orchestrate

import (
	"fmt"
	"strings"

	"github.com/agentverse/agentverse/store"
)

// ConclusionMarker is the in-band token an agent emits to signal that it
// considers the conversation finished. It is parsed out deterministically
// and never persisted or displayed.
const ConclusionMarker = "[CONVERSATION_CONCLUDED]"

const framingTemplate = `%s

IMPORTANT INSTRUCTIONS FOR MULTI-AGENT CONVERSATION:
- You are in a conversation with other agents: %s
- Respond naturally to the previous messages in the conversation
- Build upon what others have said
- If you feel the discussion has reached a natural conclusion, end your response with the phrase: "%s"
- If there's more to discuss, continue the dialogue
- Be concise but meaningful in your responses`

// BuildPrompt renders the prompt sent to the next agent. It is a pure
// function of the transcript prefix: the very first turn of a session
// carries the seed prompt framed as coming from the user; every later
// turn carries the full ordered transcript, one "{agentName}: {response}"
// entry per prior turn, joined by blank lines.
func BuildPrompt(history []store.Turn, agentNames map[string]string, seedPrompt string) string {
	if len(history) == 0 {
		return "User: " + seedPrompt
	}

	lines := make([]string, 0, len(history))
	for _, t := range history {
		name := agentNames[t.AgentID]
		if name == "" {
			name = t.AgentID
		}
		lines = append(lines, name+": "+t.Response)
	}
	return strings.Join(lines, "\n\n")
}

// Framing augments an agent's persona with the fixed multi-agent block:
// the names of the other participants, the instruction to build on prior
// turns, and the conclusion marker contract.
func Framing(persona string, self store.Agent, participants []store.Agent, marker string) string {
	others := make([]string, 0, len(participants))
	for _, a := range participants {
		if a.ID == self.ID {
			continue
		}
		others = append(others, a.Name)
	}
	return fmt.Sprintf(framingTemplate, persona, strings.Join(others, ", "), marker)
}

// StripMarker removes the conclusion marker and surrounding whitespace
// from a response.
func StripMarker(response, marker string) string {
	return strings.TrimSpace(strings.ReplaceAll(response, marker, ""))
}
