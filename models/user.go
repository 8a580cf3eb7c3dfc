package models

import "time"

type User struct {
	ID        string `json:"id" bson:"_id"`
	Name      string `json:"name" bson:"name"`
	PushToken string `json:"pushToken,omitempty" bson:"push_token,omitempty"`
}

type Admin struct {
	Username     string    `json:"username" bson:"_id"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// OutboundNotification is the audit row written for every push attempt.
type OutboundNotification struct {
	Audience string            `json:"audience" bson:"audience"`
	OrderID  string            `json:"orderId" bson:"order_id"`
	Title    string            `json:"title" bson:"title"`
	Body     string            `json:"body" bson:"body"`
	Data     map[string]string `json:"data,omitempty" bson:"data,omitempty"`
	Success  int               `json:"success" bson:"success"`
	Failure  int               `json:"failure" bson:"failure"`
	SentAt   time.Time         `json:"sentAt" bson:"sent_at"`
}
