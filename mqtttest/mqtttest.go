// Package mqtttest provides an in-memory paho client for tests.
package mqtttest

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Token is an already completed paho token.
type Token struct {
	err error
}

func (t *Token) Wait() bool                     { return true }
func (t *Token) WaitTimeout(time.Duration) bool { return true }
func (t *Token) Error() error                   { return t.err }

func (t *Token) Done() <-chan struct{} {
	done := make(chan struct{})
	close(done)
	return done
}

// Message is a received MQTT message.
type Message struct {
	TopicName string
	Body      []byte
	Retain    bool
}

func (m *Message) Duplicate() bool   { return false }
func (m *Message) Qos() byte         { return 0 }
func (m *Message) Retained() bool    { return m.Retain }
func (m *Message) Topic() string     { return m.TopicName }
func (m *Message) MessageID() uint16 { return 0 }
func (m *Message) Payload() []byte   { return m.Body }
func (m *Message) Ack()              {}

// Client records publishes and subscriptions. Methods it does not override panic.
type Client struct {
	mqtt.Client

	mutex         sync.Mutex
	published     []Message
	subscriptions map[string]mqtt.MessageHandler
	PublishErr    error
}

func NewClient() *Client {
	return &Client{
		subscriptions: make(map[string]mqtt.MessageHandler),
	}
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.PublishErr != nil {
		return &Token{err: c.PublishErr}
	}

	var body []byte
	switch p := payload.(type) {
	case []byte:
		body = p
	case string:
		body = []byte(p)
	default:
		body = []byte(fmt.Sprintf("%v", p))
	}

	c.published = append(c.published, Message{TopicName: topic, Body: body, Retain: retained})

	return &Token{}
}

func (c *Client) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.subscriptions[topic] = callback

	return &Token{}
}

// Deliver invokes the handler subscribed to topic, as the broker would.
func (c *Client) Deliver(topic string, payload string) error {
	c.mutex.Lock()
	handler, ok := c.subscriptions[topic]
	c.mutex.Unlock()

	if !ok {
		return fmt.Errorf("no subscription for %v", topic)
	}

	handler(c, &Message{TopicName: topic, Body: []byte(payload)})

	return nil
}

// Published returns every message published so far.
func (c *Client) Published() []Message {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return append([]Message(nil), c.published...)
}

// Last returns the last payload published on topic.
func (c *Client) Last(topic string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for i := len(c.published) - 1; i >= 0; i-- {
		if c.published[i].TopicName == topic {
			return string(c.published[i].Body), true
		}
	}

	return "", false
}

// Count returns how many messages were published on topic.
func (c *Client) Count(topic string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n := 0
	for _, m := range c.published {
		if m.TopicName == topic {
			n++
		}
	}

	return n
}

func (c *Client) Subscribed() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	topics := make([]string, 0, len(c.subscriptions))
	for topic := range c.subscriptions {
		topics = append(topics, topic)
	}

	return topics
}

func (c *Client) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.published = nil
}
