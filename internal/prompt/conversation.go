package prompt

import (
	"fmt"

	"github.com/kevinmichaelchen/five-bullets/internal/models"
)

const (
	// EndOfEvents is the sentinel line that tells the model to stop staying
	// silent and produce the summary.
	EndOfEvents = "=== THIS IS THE END OF THE EVENTS ==="

	// EmptyReply fills every assistant turn so roles strictly alternate.
	EmptyReply = "(empty response)"
)

const protocolPrompt = `Below is a series of GitHub events by %s in the last week. Each event will be delivered in its own user message.

After each event message, reply with nothing (an empty response) and wait for the next one. Keep going until a message contains the line "%s". Only then will you receive the actual instructions for your reply.`

const taskPrompt = `%s

Now summarize the events above in exactly 5 bullet points. Write the response inside a YAML code block, one bullet per line. For example:

` + "```yaml" + `
- 🐛 Fix [a bug](https://github.com/kubernetes/kubernetes/issues/5351) related to GRPC on Kubernetes
- 🛠️ Working on [a refactoring PR](https://github.com/uigraph/uigraph/pull/123) for the backend of UIGraph
- 👀 Reviewing PRs for type definition in UIGraph: [#125](https://github.com/uigraph/uigraph/pull/125), [#127](https://github.com/uigraph/uigraph/pull/127), etc.
- 💬 Discussing [a new model](https://github.com/thatguy/popchat/discussions/3620) for Popchat
- 🔍 Investigating [a bug](https://github.com/theworld/ppk/issues/643) related to PPK API
` + "```" + `

Guidelines:
- Each bullet links to the issue, pull request, discussion or repository it refers to, using a markdown link.
- Start each bullet with exactly one emoji that fits it.
- Keep each bullet to a single short sentence, written from %s's point of view without naming them.
- Leave out anything you cannot confidently infer from the events. Do not invent links.`

// BuildConversation assembles the transcript sent to the completion endpoint:
// the protocol instruction, one silent exchange per formatted event, and the
// closing instruction that asks for the summary.
func BuildConversation(username string, blocks []string) []models.Message {
	msgs := make([]models.Message, 0, 2*len(blocks)+3)
	msgs = append(msgs,
		models.Message{Role: models.RoleUser, Content: fmt.Sprintf(protocolPrompt, username, EndOfEvents)},
		models.Message{Role: models.RoleAssistant, Content: EmptyReply},
	)

	for _, block := range blocks {
		msgs = append(msgs,
			models.Message{Role: models.RoleUser, Content: block},
			models.Message{Role: models.RoleAssistant, Content: EmptyReply},
		)
	}

	msgs = append(msgs, models.Message{
		Role:    models.RoleUser,
		Content: fmt.Sprintf(taskPrompt, EndOfEvents, username),
	})
	return msgs
}
