package longpoll

import (
	"context"
	"time"
)

// Source writes a freshly generated Item into its Mailbox on every tick,
// whether or not anybody is waiting for it.
type Source struct {
	mailbox  *Mailbox
	generate Generator
	interval time.Duration
	now      func() time.Time
}

func NewSource(mb *Mailbox, gen Generator, interval time.Duration) *Source {
	return &Source{mailbox: mb, generate: gen, interval: interval, now: time.Now}
}

// Produce generates one Item, writes it into the Mailbox and returns it.
func (this *Source) Produce() Item {
	return this.write(this.generate())
}

func (this *Source) write(data interface{}) Item {
	item := NewItem(data, this.now())

	this.mailbox.Write(item)
	log().V(5).Info("produced item", "item", item.ID, "timestamp", FormatTimestamp(item.Timestamp))

	return item
}

// Start produces an Item every interval until ctx is done. Ticks are handled
// by a single goroutine, so productions never overlap.
func (this *Source) Start(ctx context.Context) error {
	log().Info("starting data source", "interval", this.interval.String())

	ticker := time.NewTicker(this.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log().V(1).Info("stopping data source")
			return nil
		case <-ticker.C:
			this.Produce()
		}
	}
}
