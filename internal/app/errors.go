package app

import "errors"

var (
	// ErrInvalidCounterName is returned when a counter name is empty or blank.
	ErrInvalidCounterName = errors.New("invalid counter name")
	// ErrInvalidDay is returned when a day string is not a YYYY-MM-DD calendar date.
	ErrInvalidDay = errors.New("invalid day")
	// ErrInvalidMonth is returned when a month is outside 1..12.
	ErrInvalidMonth = errors.New("invalid month")
	// ErrCorruptState indicates the persisted state could not be parsed.
	ErrCorruptState = errors.New("corrupt persisted state")
	// ErrPersistFailed wraps write failures while saving the store.
	ErrPersistFailed = errors.New("persist failed")
	// ErrUnknownStorage is returned for an unsupported storage driver name.
	ErrUnknownStorage = errors.New("unknown storage driver")
	// ErrUnknownFormat is returned for an unsupported export format.
	ErrUnknownFormat = errors.New("unknown export format")
)
