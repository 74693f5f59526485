package models

import "time"

// AwardPreference — элемент упорядоченного списка желаемых наград игрока.
// Меньший PreferenceOrder означает более желаемую награду.
type AwardPreference struct {
	ID              int       `json:"id" db:"id"`
	PlayerID        int       `json:"player_id" db:"player_id"`
	AwardID         int       `json:"award_id" db:"award_id"`
	PreferenceOrder int       `json:"preference_order" db:"preference_order"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
