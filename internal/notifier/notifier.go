package notifier

import (
	"context"
	"log"
)

// Notifier delivers alert messages.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// LogNotifier writes messages to the log. It is used when Telegram is not
// configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Notify(_ context.Context, text string) error {
	log.Printf("[INFO] alert:\n%s", stripTags(text))
	return nil
}
