package view

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

type SendOptions struct {
	Temperature float64
	Format      ResponseFormat
	// SchemaName and Schema are set when the backend should constrain output
	// to a JSON schema rather than any JSON object.
	SchemaName string
	Schema     interface{}
}
