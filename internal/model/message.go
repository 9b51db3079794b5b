package model

// CallbackMessage is the payload GroupMe posts to the webhook for every
// group message.
type CallbackMessage struct {
	ID         string `json:"id"`
	SourceGUID string `json:"source_guid"`
	GroupID    string `json:"group_id"`
	UserID     string `json:"user_id"`
	SenderID   string `json:"sender_id"`
	SenderType string `json:"sender_type"`
	Name       string `json:"name"`
	Text       string `json:"text"`
	System     bool   `json:"system"`
	CreatedAt  int64  `json:"created_at"`
}

// ClassifyRequest is the body of a direct /ai invocation.
type ClassifyRequest struct {
	Text          string   `json:"text"`
	SystemMessage string   `json:"system_message,omitempty"`
	Think         bool     `json:"think,omitempty"`
	Data          []string `json:"data,omitempty"`
}

// ClassifyResponse is the model output returned by /ai.
type ClassifyResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`
}

// LoginResponse is returned by /auth/login after a key validates.
type LoginResponse struct {
	Status   string   `json:"status"`
	Name     string   `json:"name"`
	Role     string   `json:"role"`
	Projects Projects `json:"projects,omitempty"`
}
