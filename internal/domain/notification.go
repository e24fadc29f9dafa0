package domain

// Notification is a single system notification handed to a notification surface.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
}
