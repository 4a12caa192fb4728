package logging

import (
	"log/slog"
)

func Error(err error) slog.Attr {
	if err == nil {
		slog.Error("Going to log nil error")
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}

func UserID(userID string) slog.Attr {
	return slog.String("userId", userID)
}

func BaseID(baseID string) slog.Attr {
	return slog.String("baseId", baseID)
}
