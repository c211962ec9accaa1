package models

import "errors"

var (
	ErrEmptyBody          = errors.New("message body is empty")
	ErrBodyTooLong        = errors.New("message body too long")
	ErrMissingID          = errors.New("message id is required")
	ErrMissingParticipant = errors.New("participant id is required")
)
