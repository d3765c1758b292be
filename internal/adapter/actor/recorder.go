package actor

import (
	"strings"
	"sync"
)

type PublishedMessage struct {
	Topic   string
	Payload string
	Retain  bool
}

// PublishRecorder collects what the dummy MQTT actor would have sent.
type PublishRecorder struct {
	mu       sync.Mutex
	messages []PublishedMessage
}

func (r *PublishRecorder) record(msg rawMessage) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, PublishedMessage{
		Topic:   msg.topic,
		Payload: msg.message,
		Retain:  msg.retain,
	})
}

func (r *PublishRecorder) Messages() []PublishedMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PublishedMessage(nil), r.messages...)
}

// Last returns the latest payload published on topic.
func (r *PublishRecorder) Last(topic string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Topic == topic {
			return r.messages[i].Payload, true
		}
	}
	return "", false
}

func (r *PublishRecorder) CountPrefix(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, msg := range r.messages {
		if strings.HasPrefix(msg.Topic, prefix) {
			count++
		}
	}
	return count
}
