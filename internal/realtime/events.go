package realtime

// Event names and the envelope shape are a wire contract shared with the
// frontend; do not rename fields.
const (
	EventNewMessage       = "chat:new_message"
	EventSurrogateTyping  = "chat:surrogate_typing"
	EventSessionStarted   = "session:started"
	EventUserJoined       = "session:user_joined"
	EventSessionCompleted = "session:completed"
)

type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// MessagePayload is the chat:new_message body. ParticipantID and
// SourceSubgroupID marshal as null for agent messages, matching the original
// payloads clients already parse.
type MessagePayload struct {
	ID               string  `json:"id"`
	SubgroupID       string  `json:"subgroup_id"`
	UserID           *string `json:"user_id"`
	DisplayName      string  `json:"display_name"`
	Content          string  `json:"content"`
	MsgType          string  `json:"msg_type"`
	SourceSubgroupID *string `json:"source_subgroup_id"`
	CreatedAt        string  `json:"created_at"`
}
