package config

import "errors"

// ErrParsing is returned when environment variables cannot be parsed into the target type.
var ErrParsing = errors.New("failed to parse environment configuration")
