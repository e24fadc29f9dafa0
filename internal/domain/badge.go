package domain

// BadgeState is a point-in-time read of the host badge.
type BadgeState struct {
	Supported bool `json:"supported"`
	Cleared   bool `json:"cleared"`
	Count     int  `json:"count"`
}
