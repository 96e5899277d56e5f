package models

import (
	"time"
)

// User is keyed internally by a numeric id and externally by the auth
// provider's opaque subject. Created on first authenticated request.
type User struct {
	ID        int64     `json:"id"`
	Subject   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
