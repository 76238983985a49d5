package display

import "fmt"

// ImproperlyConfiguredError reports a view the filter cannot work with. It is
// a programming error in the view definition, never a client error.
type ImproperlyConfiguredError struct {
	Component string
	View      string
	Err       error // failure of the view's SerializerFunc, if any
}

func (e *ImproperlyConfiguredError) Error() string {
	msg := fmt.Sprintf("cannot use %s on view '%s' which has neither a preset, a SerializerFunc nor display_fields", e.Component, e.View)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ImproperlyConfiguredError) Unwrap() error {
	return e.Err
}
