package config

import "fmt"

// Error reports a config file that is missing, unreadable, or not valid
// YAML for the expected schema. It is fatal at startup, except when the
// file is simply absent, which is the "write a default and exit 0" path
// handled by Load returning a *WroteDefault instead of this type.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
