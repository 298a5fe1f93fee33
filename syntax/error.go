package syntax

import "fmt"

// ParseError reports an ill-formed pattern. Before and After are the
// literal pattern slices on either side of the cursor where parsing
// stopped, so callers can render the offending position directly.
type ParseError struct {
	Msg    string
	Before string
	After  string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("regex parse error: %s at '%s<<<HERE>>>%s'", e.Msg, e.Before, e.After)
}
