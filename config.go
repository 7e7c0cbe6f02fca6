// SPDX-License-Identifier: GPL-3.0-or-later

package octf

import "time"

// Config carries the dependencies and directory roots shared by the
// framework's components. The core never loads a configuration file
// itself; callers resolve paths and construct a Config in-process.
//
// Pass this to constructor functions to pre-wire dependencies. All
// fields have sensible defaults set by [NewConfig], except the
// directory roots, which have no sensible default and must be set by
// the caller.
type Config struct {
	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time

	// SocketDir is the directory containing the framework's AF_UNIX
	// control socket(s).
	SocketDir string

	// TracesDir is the root of the on-disk trace repository.
	TracesDir string

	// SettingsDir is the root where node settings are persisted.
	SettingsDir string

	// WakeupThreshold is the free-space level, in bytes, below which a
	// push into a trace ring signals the consumer. Zero (the [NewConfig]
	// value) selects 75% of the ring's capacity.
	WakeupThreshold uint32
}

// NewConfig creates a [*Config] with sensible defaults.
func NewConfig() *Config {
	return &Config{
		ErrClassifier: DefaultErrClassifier,
		TimeNow:       time.Now,
	}
}
