package types

import "time"

// User is the identity a bearer token resolves to. Token issuance lives
// outside this service; tokens arrive as provisioned rows.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	APIToken  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
