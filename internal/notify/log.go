package notify

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// LogNotifier writes posts to the log instead of publishing them.
type LogNotifier struct {
	logger *zap.Logger
	count  atomic.Int64
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := fmt.Sprintf("dry-run-%d", n.count.Add(1))
	n.logger.Info("Dry run, not posting", zap.String("id", id), zap.String("text", text))
	return id, nil
}
