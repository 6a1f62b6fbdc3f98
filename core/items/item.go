// Package items defines the conversation item model shared by the transport,
// the item store and presentation.
package items

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

type Type string

const (
	TypeMessage            Type = "message"
	TypeFunctionCall       Type = "function_call"
	TypeFunctionCallOutput Type = "function_call_output"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Item is one unit of dialogue: a user turn, an assistant turn or a tool
// exchange.
type Item struct {
	ID     string
	Role   Role
	Type   Type
	Status Status

	Formatted Formatted
}

// Formatted holds the item content assembled from streamed deltas.
type Formatted struct {
	Text       string
	Transcript string
	// Audio is mono linear16 at the session sample rate.
	Audio []int16
	Tool  *ToolCall
	// Output is the result of a function call, set on function_call_output
	// items.
	Output string

	// File is the WAV rendition of Audio, derived once the item completes.
	File []byte
}

type ToolCall struct {
	CallID    string
	Name      string
	Arguments string
}

// Delta is an incremental content fragment for a single item.
type Delta struct {
	Audio      []int16
	Text       string
	Transcript string
	Arguments  string
}

func (d Delta) IsEmpty() bool {
	return len(d.Audio) == 0 && d.Text == "" && d.Transcript == "" && d.Arguments == ""
}

func (i Item) IsCompleted() bool { return i.Status == StatusCompleted }

// Label returns the role, or the item type for items without one (tool
// calls), the way transcripts label entries.
func (i Item) Label() string {
	if i.Role != "" {
		return string(i.Role)
	}
	return string(i.Type)
}
