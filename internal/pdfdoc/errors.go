package pdfdoc

import "errors"

var (
	ErrParse = errors.New("failed to parse HTML")
	ErrImage = errors.New("unsupported image")
	ErrWrite = errors.New("failed to write PDF")
)
