package entity

import "time"

// User is the aggregate root for the local account domain.
// PasswordHash is a bcrypt hash; IntraJWT is the user's stored session token
// for the intra portal, replayed by the sign flow until it expires.
type User struct {
	ID                string
	Username          string
	PasswordHash      string
	IntraJWT          *string
	IntraJWTExpiresAt *time.Time
}

// UserSignature is one handwritten signature owned by a user, stored as a
// data-URL-encoded PNG and replayed verbatim into upstream forms.
type UserSignature struct {
	ID            string
	UserID        string
	SignatureData string
	CreatedAt     time.Time
}
