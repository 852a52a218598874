package domain

import "time"

// Profile is the user-service record created alongside a credential.
type Profile struct {
	AccountID string
	Email     string
	FirstName string
	LastName  string
	Role      Role
}

// PendingProfile is an outbox entry: a profile still to be created in the
// user service.
type PendingProfile struct {
	ID            string
	Profile       Profile
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
}
