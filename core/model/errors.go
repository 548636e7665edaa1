package model

import "errors"

var (
	// ErrNotFound is returned by stores when the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAssigned is returned when an order already carries an active assignment.
	ErrAlreadyAssigned = errors.New("order already assigned")
)
