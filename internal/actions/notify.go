package actions

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/helion-data/scanflow/pkg/schema"
)

const notificationInputSchema = `{
  "type": "object",
  "properties": {
    "level": {"type": "string", "enum": ["debug", "info", "warn", "error"], "default": "info"},
    "message": {"type": "string"},
    "fields": {"type": "object"}
  },
  "required": ["message"]
}`

// NotificationHandler implements the "notification" action kind. It emits a
// structured log record carrying the configured message and fields; delivery
// to external channels is out of scope for the engine.
type NotificationHandler struct {
	logger *slog.Logger
}

// NewNotificationHandler creates a notification handler writing to the given
// logger.
func NewNotificationHandler(logger *slog.Logger) *NotificationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationHandler{logger: logger}
}

func (h *NotificationHandler) Kind() string { return string(schema.ActionKindNotification) }

func (h *NotificationHandler) Schema() HandlerSchema {
	return HandlerSchema{
		Description: "Emit a structured notification record.",
		InputSchema: json.RawMessage(notificationInputSchema),
	}
}

func (h *NotificationHandler) Validate(params map[string]any) error {
	if stringParam(params, "message", "") == "" {
		return schema.NewError(schema.ErrKindValidation, "notification: missing required param 'message'")
	}
	return nil
}

func (h *NotificationHandler) Execute(ctx context.Context, input Input) (*Output, error) {
	params := input.Params
	if params == nil {
		params = map[string]any{}
	}

	if err := h.Validate(params); err != nil {
		return nil, err
	}

	message := stringParam(params, "message", "")
	level := parseLevel(stringParam(params, "level", "info"))

	attrs := []any{slog.String("channel", "notification")}
	if fields, ok := params["fields"].(map[string]any); ok {
		for k, v := range fields {
			attrs = append(attrs, slog.Any(k, v))
		}
	}

	h.logger.Log(ctx, level, message, attrs...)

	return &Output{Outputs: map[string]any{
		"notified": true,
		"message":  message,
	}}, nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var _ Handler = (*NotificationHandler)(nil)
