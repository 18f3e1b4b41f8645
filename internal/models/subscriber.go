package models

import "time"

// Subscriber is a newsletter recipient. Mail is only sent to verified
// subscribers that have not unsubscribed.
type Subscriber struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	Email             string     `json:"email" gorm:"uniqueIndex;not null"`
	Name              string     `json:"name"`
	Language          string     `json:"language" gorm:"default:'en'"`
	Verified          bool       `json:"verified" gorm:"default:false"`
	VerificationToken string     `json:"-" gorm:"index"`
	UnsubscribeToken  string     `json:"-" gorm:"index"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	UnsubscribedAt    *time.Time `json:"unsubscribed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsActive reports whether the subscriber should receive newsletters.
func (s *Subscriber) IsActive() bool {
	return s.Verified && s.UnsubscribedAt == nil
}
