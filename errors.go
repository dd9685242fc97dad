package hammock

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure scenarios
var (
	// ErrAmbiguousArguments is returned when a GET mixes transport arguments
	// with arguments meant to become query parameters.
	ErrAmbiguousArguments = errors.New("hammock: ambiguous arguments")

	// ErrInvalidArgument is returned when a request argument is unknown to
	// the transport or holds a value of an unsupported type.
	ErrInvalidArgument = errors.New("hammock: invalid argument")

	// ErrInvalidConfig is returned when a chain or session is misconfigured.
	ErrInvalidConfig = errors.New("hammock: invalid configuration")
)

// ArgumentError reports a GET whose arguments cannot be disambiguated: some
// keys are transport arguments, others would become query parameters. Pass
// the query parameters under an explicit "params" key instead.
type ArgumentError struct {
	Method  string
	Special []string
	Unknown []string
}

// Error implements error interface.
func (e *ArgumentError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("hammock: %s cannot combine transport arguments [%s] with query arguments [%s]; use %q",
		e.Method, strings.Join(e.Special, ", "), strings.Join(e.Unknown, ", "), ArgParams)
}

// Is reports whether target is ErrAmbiguousArguments.
func (e *ArgumentError) Is(target error) bool {
	return target == ErrAmbiguousArguments
}

func invalidArgument(key string, err error) error {
	return fmt.Errorf("%w %q: %v", ErrInvalidArgument, key, err)
}
