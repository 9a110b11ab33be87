package agent

// Role tags the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged text in a conversation turn.
type Message struct {
	Role    Role
	Content string
}

// State is the data passed between pipeline steps during a single turn.
// An empty CityName means no city has been determined.
type State struct {
	Messages []Message
	CityName string
}

// Last returns the most recent message and false when there is none.
func (s State) Last() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Update is the partial result of a step. Messages are appended to the
// transcript; a nil CityName leaves the city as it is.
type Update struct {
	Messages []Message
	CityName *string
}

// Apply merges u into s.
func (s State) Apply(u Update) State {
	if len(u.Messages) > 0 {
		msgs := make([]Message, 0, len(s.Messages)+len(u.Messages))
		s.Messages = append(append(msgs, s.Messages...), u.Messages...)
	}
	if u.CityName != nil {
		s.CityName = *u.CityName
	}
	return s
}

func assistant(text string) []Message {
	return []Message{{Role: RoleAssistant, Content: text}}
}

func city(name string) *string {
	return &name
}
