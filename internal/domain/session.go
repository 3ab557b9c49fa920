package domain

import "time"

// User is the authenticated account as reported by the auth gateway
type User struct {
	ID       string
	Email    string
	Metadata map[string]string
}

type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	User        User
}
