package models

import "time"

// User represents a staff account of the fundraising system
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      string    `json:"role" db:"role"` // 'admin', 'registrar', 'caller', 'donor'
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Recipient is a user the caller may open a conversation with
type Recipient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// ToRecipient converts User to Recipient
func (u *User) ToRecipient() Recipient {
	return Recipient{
		ID:   u.ID,
		Name: u.Name,
		Role: u.Role,
	}
}
