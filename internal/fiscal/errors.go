package fiscal

import "errors"

var (
	// ErrUnknownActivityType indicates an activity outside the rate table.
	ErrUnknownActivityType = errors.New("fiscal: unknown activity type")
	// ErrNoRateSchedule indicates no schedule covers the requested date.
	ErrNoRateSchedule = errors.New("fiscal: no rate schedule for date")
	// ErrInvalidRateTable indicates overlapping or malformed schedules.
	ErrInvalidRateTable = errors.New("fiscal: invalid rate table")
	// ErrNotMicroEntrepreneur indicates a regime outside MICRO_BIC/BNC.
	ErrNotMicroEntrepreneur = errors.New("fiscal: user is not a micro-entrepreneur")
	// ErrMissingActivityType indicates a micro-entrepreneur without activity type.
	ErrMissingActivityType = errors.New("fiscal: activity type missing")
	// ErrInvalidPeriod indicates an empty or inverted period.
	ErrInvalidPeriod = errors.New("fiscal: invalid period")
	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = errors.New("fiscal: user not found")
)
