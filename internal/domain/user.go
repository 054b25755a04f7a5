package domain

import "time"

// User represents an account, either local (password set) or federated
// (Provider/ProviderID set, no password).
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Image        string
	Provider     string
	ProviderID   string
	CreatedAt    time.Time
}

// HasPassword reports whether the account was registered locally.
func (u User) HasPassword() bool {
	return len(u.PasswordHash) > 0
}
