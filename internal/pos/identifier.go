package pos

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrInvalidIdentifier = errors.New("invalid sku format")

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// ParseIdentifier trims raw scanner or keyboard input and checks it against
// the SKU shape accepted by the lookup endpoint.
func ParseIdentifier(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if !identifierPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return id, nil
}
