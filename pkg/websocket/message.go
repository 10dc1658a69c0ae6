package websocket

import "time"

// Envelope - конверт сообщения ленты. По Type клиент понимает, что пришло в Payload.
type Envelope struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}
