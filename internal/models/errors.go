package models

import "errors"

var (
	ErrConfig = errors.New("invalid configuration")
	ErrFetch  = errors.New("feed fetch failed")
	ErrParse  = errors.New("feed parse failed")
	ErrAuth   = errors.New("SMTP authentication failed")
	ErrSend   = errors.New("email send failed")
)
