package event

import "github.com/go-faster/errors"

// permanentError marks a failure that redelivery cannot fix. The consumer
// acknowledges such messages instead of requeueing them, so a malformed
// payload does not spin on the queue forever.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err as a permanent delivery failure. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether any error in the chain was marked Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}
