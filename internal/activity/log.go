package activity

import (
	"context"

	"go.uber.org/zap"
)

// LogRecorder writes every entry to the logger and then forwards it to next, if any.
type LogRecorder struct {
	next   Recorder
	logger *zap.Logger
}

func NewLogRecorder(next Recorder, logger *zap.Logger) *LogRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRecorder{next: next, logger: logger}
}

func (r *LogRecorder) Record(ctx context.Context, e Entry) error {
	r.logger.Info("activity",
		zap.String("user_id", e.UserID),
		zap.String("activity_type", string(e.Type)),
		zap.Int("minutes_saved", MinutesSaved(e.Type)),
		zap.Any("details", e.Details),
	)

	if r.next == nil {
		return nil
	}
	return r.next.Record(ctx, e)
}

// List delegates to next when it can list entries.
func (r *LogRecorder) List(ctx context.Context, userID string) ([]Entry, error) {
	if lister, ok := r.next.(Lister); ok {
		return lister.List(ctx, userID)
	}
	return []Entry{}, nil
}
