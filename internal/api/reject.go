package api

import (
	"errors"
	"fmt"
)

// Rejection is a business refusal: the request was understood but the
// domain rules say no. Handlers map it to 400 with the reason verbatim;
// it is never logged as a server error.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func Reject(format string, args ...interface{}) error {
	if len(args) == 0 {
		return &Rejection{Reason: format}
	}
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

func IsRejection(err error) bool {
	var rejection *Rejection
	return errors.As(err, &rejection)
}
