// Package credential defines the plaintext vault item shared by the vault and
// the analytics packages.
package credential

import "time"

// Item is a decrypted vault entry. It only exists in memory while the vault
// is unlocked.
type Item struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Username  string    `json:"username"`
	Password  string    `json:"password"`
	Site      string    `json:"site"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LastChanged returns UpdatedAt, falling back to CreatedAt when unset.
func (i Item) LastChanged() time.Time {
	if i.UpdatedAt.IsZero() {
		return i.CreatedAt
	}
	return i.UpdatedAt
}

// Age returns how long ago the password last changed.
func (i Item) Age(now time.Time) time.Duration {
	return now.Sub(i.LastChanged())
}
