package service

import "errors"

var (
	ErrNoItems              = errors.New("no items")
	ErrInvalidItem          = errors.New("invalid item in order")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
	ErrInvalidRating        = errors.New("ratings must be between 1 and 5")
	ErrMissingFields        = errors.New("missing fields")
)
