package models

import "time"

// Player представляет игрока, которому могут быть назначены награды.
// ExternalID — идентификатор игрока во внешней федерации (например, AGA ID),
// по нему резолвятся победители при распределении наград.
type Player struct {
	ID         int       `json:"id" db:"id"`
	FullName   string    `json:"full_name" db:"full_name"`
	Email      string    `json:"email" db:"email"`
	ExternalID string    `json:"external_id" db:"external_id"`
	Rating     *int      `json:"rating,omitempty" db:"rating"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
