package domain

// TypeLog tags diagnostic broadcasts.
const TypeLog = "LOG"

// BroadcastMessage is sent from the worker to every foreground instance. Delivery is
// fire-and-forget.
type BroadcastMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// InstanceHandle identifies one connected foreground instance.
type InstanceHandle struct {
	ID         string
	Controlled bool
}
