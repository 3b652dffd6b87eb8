package domain

import (
	"errors"
	"fmt"
)

// BadRequestError carries an operator-facing message precise enough to fix
// the offending spreadsheet cell without reading server logs. The HTTP layer
// turns it into a 400; everything else stays a 500.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

func BadRequestf(format string, args ...any) error {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

func IsBadRequest(err error) bool {
	var target *BadRequestError
	return errors.As(err, &target)
}
