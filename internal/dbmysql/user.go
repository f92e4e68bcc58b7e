package dbmysql

import (
	"time"
)

const DefaultAbout = "Available"

type User struct {
	UserID       string    `gorm:"primaryKey;column:user_id;size:36" json:"_id"`
	FullName     string    `gorm:"column:full_name;size:100;not null" json:"fullName"`
	Phone        string    `gorm:"column:phone;uniqueIndex;size:20;not null" json:"phone"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	ProfilePhoto string    `gorm:"column:profile_photo;size:255" json:"profilePhoto"`
	About        string    `gorm:"column:about;size:255" json:"about"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// Profile is the public view of a user returned by every HTTP endpoint.
type Profile struct {
	ID           string `json:"_id"`
	FullName     string `json:"fullName"`
	Phone        string `json:"phone"`
	ProfilePhoto string `json:"profilePhoto"`
	About        string `json:"about"`
}

func (u *User) Profile() Profile {
	about := u.About
	if about == "" {
		about = DefaultAbout
	}
	return Profile{
		ID:           u.UserID,
		FullName:     u.FullName,
		Phone:        u.Phone,
		ProfilePhoto: u.ProfilePhoto,
		About:        about,
	}
}
