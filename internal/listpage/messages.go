package listpage

import (
	"errors"
	"strconv"

	"posadmin/internal/api"
)

// rootMessage prefers the backend's own message over the wrapped chain.
func rootMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *api.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func quote(s string) string { return strconv.Quote(s) }

func itoa(n int) string { return strconv.Itoa(n) }
