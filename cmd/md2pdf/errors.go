package main

import "errors"

// Sentinel errors for CLI operations.
var (
	ErrUsage        = errors.New("invalid usage")
	ErrReadMarkdown = errors.New("failed to read markdown")
	ErrWriteOutput  = errors.New("failed to write output")
	ErrTooManyArgs  = errors.New("too many arguments")

	// errHelp stops a command after its usage was printed on request.
	errHelp = errors.New("help requested")
)
