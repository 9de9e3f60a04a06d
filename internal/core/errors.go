package core

import "fmt"

// PreconditionError represents a rejected operation whose preconditions were
// not met. The operation had no side effects and may be retried once the
// stated condition changes.
type PreconditionError struct {
	Operation string
	Message   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Operation, e.Message)
}

// ProtocolError represents a malformed or undecodable wire frame.
type ProtocolError struct {
	Event   string
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("protocol event %s: %s", e.Event, e.Message)
	}
	return fmt.Sprintf("protocol: %s", e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NetworkError represents a network communication error.
type NetworkError struct {
	Operation string
	URL       string
	Message   string
	Err       error
}

func (e *NetworkError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("network %s to %s: %s", e.Operation, e.URL, e.Message)
	}
	return fmt.Sprintf("network %s: %s", e.Operation, e.Message)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// LLMError represents a model invocation error in the news agent.
type LLMError struct {
	Task    string
	Message string
	Err     error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("LLM task %s: %s", e.Task, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}
