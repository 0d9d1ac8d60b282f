// Package errs holds the error kinds shared by acquisition and analysis.
// Callers match them with errors.Is; context is attached with errors.Wrap.
package errs

import "github.com/pkg/errors"

var (
	// ErrMissingData means a data directory holds no trial files.
	ErrMissingData = errors.New("missing data")

	// ErrConfiguration covers invalid block size or tolerances and a trial
	// count that is not a multiple of the block size.
	ErrConfiguration = errors.New("configuration error")

	// ErrMalformedRecord is a trial record that cannot be parsed or used.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrDeviceTimeout is returned when the device produced no valid record
	// within the allowed number of read attempts.
	ErrDeviceTimeout = errors.New("device timeout")
)
