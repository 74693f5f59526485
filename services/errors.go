package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки распределения наград
	ErrAllocationInProgress    = errors.New("another result is currently being allocated")
	ErrAllocationNotLocked     = errors.New("result allocation is not locked")
	ErrAllocationFinalized     = errors.New("result allocation is already finalized")
	ErrNoAwardsSubmitted       = errors.New("awards list is empty after filtering")
	ErrWinnerPlayerUnknown     = errors.New("winner references an unknown player")
	ErrUnknownAwardSubmitted   = errors.New("submitted award does not exist")
	ErrUnknownPlayerSubmitted  = errors.New("submitted assignment references an unknown player")
	ErrDuplicateAwardSubmitted = errors.New("submitted award list assigns the same award twice")
	ErrAwardAlreadyAssigned    = errors.New("submitted award already belongs to another player")

	// Ошибки валидации и бизнес-правил
	ErrEventTitleRequired       = errors.New("event title is required")
	ErrEventInvalidDateRange    = errors.New("event end date must not be before start date")
	ErrPlayerNameRequired       = errors.New("player full name is required")
	ErrPlayerEmailRequired      = errors.New("player email is required")
	ErrPlayerExternalIDRequired = errors.New("player external id is required")
	ErrPrizeTitleRequired       = errors.New("prize title is required")
	ErrPrizeInvalidValue        = errors.New("prize value must not be negative")
	ErrPrizeInvalidQuantity     = errors.New("prize quantity must be positive")
	ErrWinnerInvalid            = errors.New("winner entries must have a division, an external player id and a positive place")
	ErrPreferenceDuplicateAward = errors.New("preference list contains a duplicate award")
	ErrPreferenceUnknownAward   = errors.New("preference list references an unknown award")

	// Ошибки конфликтов
	ErrResultEventConflict      = errors.New("a result already exists for this event")
	ErrPlayerEmailConflict      = errors.New("player email is already in use")
	ErrPlayerExternalIDConflict = errors.New("player external id is already in use")
	ErrPrizeInUse               = errors.New("prize has assigned awards and cannot be changed this way")
	ErrPlayerInUse              = errors.New("player still owns awards and cannot be deleted")
	ErrEventInUse               = errors.New("event has a result and cannot be deleted")
	ErrResultFinalizedDelete    = errors.New("finalized result cannot be deleted, deallocate it first")
	ErrResultLockedDelete       = errors.New("result is mid-allocation and cannot be deleted, deallocate it first")

	// Ошибки, специфичные для сущностей
	ErrEventNotFound  = errors.New("event not found")
	ErrPlayerNotFound = errors.New("player not found")
	ErrPrizeNotFound  = errors.New("prize not found")
	ErrResultNotFound = errors.New("result not found")
	ErrAwardNotFound  = errors.New("award not found")
)
