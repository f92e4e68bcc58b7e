package dbmysql

import (
	"time"
)

// Message is immutable once stored. Timestamp is assigned by the server and
// drives ordering, with Seq breaking ties in insertion order when two
// messages share a timestamp. ClientTimestamp is only a display hint.
type Message struct {
	MessageID       string     `gorm:"primaryKey;column:message_id;size:36" json:"_id"`
	SenderID        string     `gorm:"column:sender_id;size:36;not null;index:idx_sender_receiver" json:"senderId"`
	ReceiverID      string     `gorm:"column:receiver_id;size:36;not null;index:idx_sender_receiver;index" json:"receiverId"`
	Text            string     `gorm:"column:text;type:text;not null" json:"text"`
	Seq             uint64     `gorm:"column:seq;autoIncrement;uniqueIndex" json:"-"`
	Timestamp       time.Time  `gorm:"column:timestamp;type:datetime(6);index" json:"timestamp"`
	ClientTimestamp *time.Time `gorm:"column:client_timestamp" json:"clientTimestamp,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
