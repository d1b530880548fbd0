package errors

import "fmt"

// Wrap adds context to an error at a package boundary. Returns nil if err is
// nil, so it is safe to use inline. The wrapped error preserves the original
// chain, so errors.Is()/errors.As() against sentinel errors keep working.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
