package nmt

import "fmt"

// RejectedError represents a non-zero returnValue or unusable response from
// the device.
type RejectedError struct {
	Command string
	Detail  string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("nmt command %s rejected: %s", e.Command, e.Detail)
}

// TimeoutError indicates a device command timed out.
type TimeoutError struct {
	Command string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("nmt command %s timed out", e.Command)
}

// UnreachableError indicates the device could not be reached.
type UnreachableError struct {
	Command string
	Err     error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("nmt command %s unreachable: %v", e.Command, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}
