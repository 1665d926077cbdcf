package errors

import "fmt"

// Wrap adds context to errors at package boundaries.
// It returns nil if err is nil, so it is safe inline:
//
//	if err := load(); err != nil {
//	    return errors.Wrap(err, "load catalog")
//	}
//
// The chain is preserved, so errors.Is keeps matching the sentinels.
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

// Mark attaches a sentinel category to err while keeping err's own chain:
// both errors.Is(result, sentinel) and errors.Is(result, err) hold.
func Mark(err, sentinel error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
