package models

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateCode      = errors.New("short code already taken")
	ErrInvalidURL         = errors.New("invalid url")
	ErrInvalidAlias       = errors.New("invalid alias")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInactive           = errors.New("link is no longer active")
	ErrExpired            = errors.New("link has expired")
	ErrPasswordRequired   = errors.New("password required")
	ErrWrongPassword      = errors.New("wrong password")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique short code")
)
