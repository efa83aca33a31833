package fetcher

import "errors"

var (
	// ErrStatusNotOK is returned when the feed response had a status different than 200 OK.
	ErrStatusNotOK = errors.New("response status is not 200 OK")
	// ErrEmptyBody is returned when the feed response carried no bytes at all.
	ErrEmptyBody = errors.New("response body is empty")
)
