package models

import "encoding/json"

// ChatRequest is one message from the assistant widget.
type ChatRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Response string `json:"response"`
}

// ChatUserInfo is the slice of the account exposed to the model.
type ChatUserInfo struct {
	Name    string   `json:"name"`
	Role    UserRole `json:"role"`
	Branch  string   `json:"branch,omitempty"`
	Section string   `json:"section,omitempty"`
}

// ChatContext is the structured data the prompt is grounded on.
type ChatContext struct {
	UserInfo       ChatUserInfo    `json:"userInfo"`
	CurrentTime    string          `json:"currentTime"`
	DayOfWeek      string          `json:"dayOfWeek"`
	Timetable      []ClassRecord   `json:"timetable"`
	UniversityInfo json.RawMessage `json:"universityInfo,omitempty"`
}
