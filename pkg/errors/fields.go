package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidator converts a validator/v10 error into a coded error whose
// message lists each failing field, e.g.
//
//	INVALID_DATASET: invalid dataset: Records[0].ID: failed required
//
// Errors that are not validator.ValidationErrors are wrapped unchanged.
func FromValidator(code Code, err error, what string) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Wrap(code, err, "invalid %s", what)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return New(code, "invalid %s: %s", what, strings.Join(msgs, "; "))
}
