package models

import "time"

// Event представляет одно соревнование, к которому привязан Result.
type Event struct {
	ID        int       `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Location  *string   `json:"location,omitempty" db:"location"`
	StartsAt  time.Time `json:"starts_at" db:"starts_at"`
	EndsAt    time.Time `json:"ends_at" db:"ends_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
