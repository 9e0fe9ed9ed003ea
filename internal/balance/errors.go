package balance

import "errors"

var (
	// ErrNoParty is returned when the roster is empty.
	ErrNoParty = errors.New("no party members")

	// ErrNoBossOffense is returned when no attack is enabled and both lair and recharge actions are off.
	ErrNoBossOffense = errors.New("no boss offense")

	// ErrNoDPRSource is returned when the selected party DPR table is empty.
	ErrNoDPRSource = errors.New("no party DPR source")
)

// ConfigError rejects an encounter before any trial runs.
type ConfigError struct {
	Err    error
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Err.Error() + ": " + e.Reason
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
