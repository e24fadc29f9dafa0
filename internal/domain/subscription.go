package domain

import "strings"

// DefaultTopic is the topic every worker notification is delivered to.
const DefaultTopic = "default"

// Subscription is a browser Web Push subscription that backs the notification surface.
type Subscription struct {
	Endpoint string   `json:"endpoint"`
	P256DH   string   `json:"p256dh"`
	Auth     string   `json:"auth"`
	Topics   []string `json:"topics"`
}

func (subscription Subscription) Valid() bool {
	return strings.TrimSpace(subscription.Endpoint) != "" &&
		strings.TrimSpace(subscription.P256DH) != "" &&
		strings.TrimSpace(subscription.Auth) != ""
}

func NormalizeTopic(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return DefaultTopic
	}
	return topic
}
