package email

import "fmt"

// ConnectionError reports a transport or authentication failure. The session
// is left disconnected; callers must reconnect before retrying.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotFoundError reports that a requested UID or Message-ID could not be
// resolved. It is reported to the caller and never retried automatically.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.What)
}

// ValidationError reports invalid input rejected before any protocol call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// ProtocolError reports that the server rejected an otherwise well-formed
// request, e.g. an invalid mailbox name.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }
