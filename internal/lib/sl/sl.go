// Package sl содержит вспомогательные функции для логгера slog.
package sl

import "log/slog"

// Err атрибут "error" с текстом ошибки, для nil пишет "<nil>".
//
//	log.Error("failed to confirm payment", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}
