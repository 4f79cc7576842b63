package models

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role
	Content string
}

// Summary is the bullet list extracted from the model output. Text is what
// gets published; Bullets is the parsed form used for reporting.
type Summary struct {
	Text    string
	Bullets []string
}

func (s Summary) Empty() bool {
	return s.Text == ""
}
