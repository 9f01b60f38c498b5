package sanitise

import (
	"errors"

	"github.com/microcosm-cc/bluemonday"
)

var ErrUnstableSanitisation = errors.New("sanitisation unstable")

const maxCntForStabilisation = 10

var policy = bluemonday.StrictPolicy()

// String strips all markup from value. Sanitising is repeated until the
// output is stable so nested payloads cannot survive a single pass.
func String(value string) (string, error) {
	for range maxCntForStabilisation {
		sanitised := policy.Sanitize(value)
		if sanitised == value {
			return sanitised, nil
		}

		value = sanitised
	}

	return "", ErrUnstableSanitisation
}

// Strings sanitises every element of values in place.
func Strings(values []string) error {
	for i, v := range values {
		s, err := String(v)
		if err != nil {
			return err
		}

		values[i] = s
	}

	return nil
}
