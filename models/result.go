package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AllocationState — логическое состояние распределения наград результата.
// Хранится не в отдельной колонке, а вычисляется из пары nullable-меток
// времени; AllocationStateOf — единственное место, где это делается.
type AllocationState string

const (
	AllocationStateInitial   AllocationState = "INITIAL"
	AllocationStateLocked    AllocationState = "LOCKED"
	AllocationStateFinalized AllocationState = "FINALIZED"
)

// AllocationStateOf вычисляет состояние из меток блокировки и финализации.
func AllocationStateOf(lockedAt, finalizedAt *time.Time) AllocationState {
	switch {
	case finalizedAt != nil:
		return AllocationStateFinalized
	case lockedAt != nil:
		return AllocationStateLocked
	default:
		return AllocationStateInitial
	}
}

// AllocationKind помечает происхождение назначения награды.
type AllocationKind string

const (
	AllocationKindDefault    AllocationKind = "DEFAULT"
	AllocationKindPreference AllocationKind = "PREFERENCE"
	AllocationKindOverride   AllocationKind = "OVERRIDE"
)

// Winner — неизменяемый факт "игрок занял место place в дивизионе division".
// Победители редактируются только заменой всего списка целиком.
type Winner struct {
	Division         string `json:"division"`
	ExternalPlayerID string `json:"external_player_id"`
	Place            int    `json:"place"`
}

// ResultAward — денормализованный снимок одного назначения награды,
// независимый от последующих изменений Award и Player.
type ResultAward struct {
	PlayerID             int            `json:"player_id"`
	PlayerName           string         `json:"player_name"`
	PlayerExternalID     string         `json:"player_external_id"`
	Place                int            `json:"place"`
	Division             string         `json:"division"`
	PrizeTitle           string         `json:"prize_title"`
	AwardID              int            `json:"award_id"`
	AwardValue           float64        `json:"award_value"`
	AwardRedeemCode      *string        `json:"award_redeem_code,omitempty"`
	UserEmail            string         `json:"user_email"`
	AwardAt              time.Time      `json:"award_at"`
	EventTitle           string         `json:"event_title"`
	AwardPreferenceOrder *int           `json:"award_preference_order,omitempty"`
	Kind                 AllocationKind `json:"allocation_kind"`
}

// WinnerList и ResultAwardList хранятся в results как jsonb и всегда
// перезаписываются целиком, никогда не мутируются поэлементно.
type WinnerList []Winner

type ResultAwardList []ResultAward

func (l WinnerList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *WinnerList) Scan(src interface{}) error {
	return scanJSONList(src, l)
}

func (l ResultAwardList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *ResultAwardList) Scan(src interface{}) error {
	return scanJSONList(src, l)
}

func scanJSONList(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}

// Result — агрегат итогов одного соревнования: список победителей и
// состояние распределения наград.
type Result struct {
	ID                    int             `json:"id" db:"id"`
	EventID               int             `json:"event_id" db:"event_id"`
	Winners               WinnerList      `json:"winners" db:"winners"`
	Awards                ResultAwardList `json:"awards" db:"awards"`
	AllocationLockedAt    *time.Time      `json:"allocation_locked_at,omitempty" db:"allocation_locked_at"`
	AllocationFinalizedAt *time.Time      `json:"allocation_finalized_at,omitempty" db:"allocation_finalized_at"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt             *time.Time      `json:"-" db:"deleted_at"`
}

func (r *Result) AllocationState() AllocationState {
	return AllocationStateOf(r.AllocationLockedAt, r.AllocationFinalizedAt)
}
