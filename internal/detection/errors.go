package detection

import (
	"errors"

	"github.com/ironsheep/region-tools-mcp/internal/pool"
)

// Error values returned by the detector. Callers match them with errors.Is;
// the returned errors wrap these with details about the failing input.
var (
	// ErrInvalidInput reports a malformed frame: non-positive dimensions,
	// a missing row or a row of the wrong width. It is detected before any
	// record is allocated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrResourceExhausted reports that a record pool could not grow. The
	// pass is abandoned; the detector can be reused after the next Detect
	// call resets it.
	ErrResourceExhausted = pool.ErrResourceExhausted

	// ErrInconsistentState reports a broken merge-forest invariant found
	// during region assembly. It indicates a programming error.
	ErrInconsistentState = errors.New("inconsistent merge forest")

	// ErrFilterSpecInvalid reports a filter range with Min > Max or NaN bounds.
	ErrFilterSpecInvalid = errors.New("invalid filter spec")

	// ErrNoGraph is returned by graph accessors when the pass ran with
	// CreateGraph disabled.
	ErrNoGraph = errors.New("region graph not available")

	// ErrBusy is returned when Detect is called while another pass on the
	// same detector is still running.
	ErrBusy = errors.New("detector busy")
)
