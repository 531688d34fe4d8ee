package obd

import "fmt"

// CycleError is an I/O failure on the stream in the middle of a cycle.
type CycleError struct {
	PID PID
	Op  string
	Err error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.PID.Command(), e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// ParseError is a reply that could not be decoded.
type ParseError struct {
	Reply string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse reply %q: %v", e.Reply, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
