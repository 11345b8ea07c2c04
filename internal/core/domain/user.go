package domain

import "time"

// User is an authenticated principal as held by the remote backend. It is the
// source of truth for credentials and, for administrators, for the mode
// preference that employee sessions inherit.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Role         string    `json:"role" bson:"role"`
	StoreID      string    `json:"store_id,omitempty" bson:"store_id,omitempty"`
	OwnerID      string    `json:"owner_id" bson:"owner_id"`
	Mode         string    `json:"mode,omitempty" bson:"mode,omitempty"` // admins only
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}
