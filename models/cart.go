package models

import "time"

// CartItem represents a worker a user has added to their booking cart.
// At most one item per worker id may exist in a single user's cart.
type CartItem struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	ProfileImageURL string    `json:"profileImageUrl,omitempty"`
	Service         string    `json:"service,omitempty"`
	Rating          float64   `json:"rating,omitempty"`
	Price           float64   `json:"price,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Category        string    `json:"category,omitempty"`
	AddedAt         time.Time `json:"addedAt,omitempty"`
}
