package models

import "time"

// Award — одна конкретная единица приза. Единица свободна, пока
// OwnerPlayerID == nil; владеть ею может не более одного игрока.
type Award struct {
	ID            int       `json:"id" db:"id"`
	PrizeID       int       `json:"prize_id" db:"prize_id"`
	OwnerPlayerID *int      `json:"owner_player_id,omitempty" db:"owner_player_id"`
	RedeemCode    *string   `json:"redeem_code,omitempty" db:"redeem_code"`
	Value         float64   `json:"value" db:"value"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

func (a *Award) Available() bool {
	return a.OwnerPlayerID == nil
}
