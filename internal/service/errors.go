package service

import "errors"

var (
	ErrAdNotFound      = errors.New("ad not found")
	ErrSessionNotFound = errors.New("payment session not found")
	ErrForbidden       = errors.New("user not authorized to perform this action")
	ErrConflict        = errors.New("operation not allowed in the resource's current state")
)
