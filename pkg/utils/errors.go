package utils

import (
	"fmt"
)

// MakeError wraps err with a formatted detail message, keeping it
// unwrappable via errors.Is/errors.As.
func MakeError(err error, detailsBody string, args ...any) error {
	return fmt.Errorf("%w: "+detailsBody, append([]any{err}, args...)...)
}
