// Package notify delivers push messages to users, restaurants and riders.
package notify

import (
	"context"
)

// Hint carries platform delivery preferences.
type Hint struct {
	ChannelID string `json:"channelId,omitempty"`
	Sound     string `json:"sound,omitempty"`
	Icon      string `json:"icon,omitempty"`
	Priority  string `json:"priority,omitempty"`
	Color     string `json:"color,omitempty"`
}

// DefaultHint is used for status updates.
var DefaultHint = Hint{
	ChannelID: "default",
	Sound:     "notification_sound",
	Icon:      "notification_icon",
	Priority:  "high",
	Color:     "#FFB627",
}

// NewOrderHint is used when a restaurant receives a new order.
var NewOrderHint = Hint{
	ChannelID: "order",
	Sound:     "custom_sound.wav",
	Icon:      "notification_icon",
	Priority:  "high",
	Color:     "#FFB627",
}

type Message struct {
	Tokens []string          `json:"tokens"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
	Hint   Hint              `json:"hint"`
}

// Result is the per-token delivery tally.
type Result struct {
	SuccessCount int `json:"successCount"`
	FailureCount int `json:"failureCount"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
}
