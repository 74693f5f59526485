package models

import "time"

// Prize представляет группу призов ("Go Book Collection x3").
// При создании приза создаётся Quantity отдельных единиц (Award).
type Prize struct {
	ID          int       `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`
	Value       float64   `json:"value" db:"value"`
	Quantity    int       `json:"quantity" db:"quantity"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	PhotoKey *string `json:"-" db:"photo_key"`
	PhotoURL *string `json:"photo_url,omitempty" db:"-"`
}
