package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/observability"
	"insider-pipeline/internal/storage"
)

// Channel delivers a message to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// RecordReader loads unified records by id.
type RecordReader interface {
	GetByID(ctx context.Context, id string) (*domain.InsiderRecord, error)
}

// Dispatcher fans a new record out to every configured channel.
type Dispatcher struct {
	records  RecordReader
	channels []Channel
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. Channels may be added later with Add.
func NewDispatcher(records RecordReader, logger *zap.Logger, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		records:  records,
		channels: channels,
		logger:   logger.Named("notify"),
	}
}

// Add registers another channel. Not safe for use once Notify is running.
func (d *Dispatcher) Add(ch Channel) {
	d.channels = append(d.channels, ch)
}

// Channels returns the names of the registered channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.channels))
	for i, ch := range d.channels {
		names[i] = ch.Name()
	}
	return names
}

// Notify loads the record and sends its message to every channel.
// A record that no longer exists is not an error. Channel failures do not
// stop delivery to the remaining channels and are returned joined.
func (d *Dispatcher) Notify(ctx context.Context, id string) error {
	if len(d.channels) == 0 {
		return nil
	}

	rec, err := d.records.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		d.logger.Warn("record not found, skipping notification", zap.String("id", id))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load record %s: %w", id, err)
	}

	msg := BuildMessage(rec)
	var errs []error
	for _, ch := range d.channels {
		err := ch.Send(ctx, msg)
		observability.RecordNotification(ch.Name(), err)
		if err != nil {
			d.logger.Warn("notification channel failed",
				zap.String("channel", ch.Name()),
				zap.String("id", id),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
		}
	}
	return errors.Join(errs...)
}
