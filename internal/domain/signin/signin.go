package signin

import "time"

// Entry is one issued session as shown in the dashboard history.
type Entry struct {
	ID          string    `json:"id"`
	Token       string    `json:"-"`
	DisplayName string    `json:"displayName"`
	PhoneHash   string    `json:"-"` // keyed hash, never the raw number
	CreatedAt   time.Time `json:"createdAt"`
}
