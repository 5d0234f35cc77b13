package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrAlreadyTerminal is returned when an operation needs a live task but
	// the task already reached a terminal state.
	ErrAlreadyTerminal = errors.New("already in a terminal state")
	// ErrQueueFull is returned when the work queue rejects a new task.
	ErrQueueFull = errors.New("queue is full")
)
