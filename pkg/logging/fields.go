package logging

import "log/slog"

// Domain identifiers

func Conversation(id string) slog.Attr {
	return slog.String("conversation_id", id)
}

func Message(id string) slog.Attr {
	return slog.String("message_id", id)
}

func Call(id string) slog.Attr {
	return slog.String("call_id", id)
}

func Notification(id string) slog.Attr {
	return slog.String("notification_id", id)
}

func User(id string) slog.Attr {
	return slog.String("user_id", id)
}

func JobKey(key string) slog.Attr {
	return slog.String("job_key", key)
}

// Request / tracing

func RequestID(id string) slog.Attr {
	return slog.String("request_id", id)
}

func TraceID(id string) slog.Attr {
	return slog.String("trace_id", id)
}

// Error handling

func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
