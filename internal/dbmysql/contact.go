package dbmysql

import (
	"time"
)

// Contact is one entry of a user's contact set.
type Contact struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"column:user_id;size:36;not null;index:idx_user_contact,unique" json:"user_id"`
	ContactID string    `gorm:"column:contact_id;size:36;not null;index:idx_user_contact,unique;index" json:"contact_id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Contact) TableName() string {
	return "contacts"
}
