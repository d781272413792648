package esi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidIdentifier marks a station/region/type id that could not be
// parsed as a positive integer. Always caller-fixable.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// ErrUpstreamUnavailable marks a failed probe or fetch against ESI.
// Propagated as-is; the core does not retry.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ParseID parses a user-supplied identifier into a positive integer id.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not a positive integer", ErrInvalidIdentifier, s)
	}
	return id, nil
}
