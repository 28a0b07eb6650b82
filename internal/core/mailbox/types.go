package mailbox

import (
	"errors"
	"strconv"
	"strings"
)

// Reply is the result of one command round trip as observed by the host.
// Code is nil when the guest published no parseable return code within the
// grace window; that means "code unknown", not zero.
type Reply struct {
	Output string
	Code   *int
}

// Protocol error conditions. All are recoverable: none of them corrupts the
// shared directory or ends the guest's polling loop.
var (
	// ErrTimeout is returned by the host client when no output update was
	// observed within the allotted time. The pending command is left in
	// place; the guest may still be processing it.
	ErrTimeout = errors.New("timeout waiting for published output")

	// ErrEmptyCommand indicates a claimed command file with no non-empty line.
	ErrEmptyCommand = errors.New("command file is empty")

	// ErrPayloadTooLarge indicates a command exceeding the payload ceiling.
	ErrPayloadTooLarge = errors.New("command payload too large")

	// ErrNotClaimed indicates the pending command could not be claimed
	// within the bounded retry budget.
	ErrNotClaimed = errors.New("failed to claim pending command")
)

// ParseReturnCode extracts a decimal return code from published return-code
// content, tolerating surrounding whitespace and newlines. The second return
// value is false when no code can be parsed; malformed content means "code
// unknown", never an error.
func ParseReturnCode(s string) (int, bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, false
	}
	code, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return code, true
}
