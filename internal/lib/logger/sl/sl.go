// Package sl holds small slog helpers.
package sl

import "log/slog"

// Err turns err into an "error" attribute.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
