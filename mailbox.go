package longpoll

import (
	"sync"
	"sync/atomic"
)

// Mailbox holds at most one unread Item. A Write replaces any unread Item and
// a successful TryRead empties the slot, so every Item is observed by at most
// one reader. A Mailbox is safe for concurrent use and must not be copied.
type Mailbox struct {
	mu      sync.Mutex
	pending *Item

	writes     uint64
	overwrites uint64
	reads      uint64
}

type MailboxStats struct {
	Writes     uint64
	Overwrites uint64
	Reads      uint64
}

func NewMailbox() *Mailbox {
	return new(Mailbox)
}

// Write stores item, discarding an unread Item if there is one.
func (this *Mailbox) Write(item Item) {
	this.mu.Lock()
	defer this.mu.Unlock()

	if this.pending != nil {
		atomic.AddUint64(&this.overwrites, 1)
		log().V(9).Info("overwriting unread item", "item", this.pending.ID)
	}

	this.pending = &item
	atomic.AddUint64(&this.writes, 1)
}

// TryRead returns the pending Item and empties the slot. It reports false if
// the Mailbox was empty.
func (this *Mailbox) TryRead() (Item, bool) {
	this.mu.Lock()
	defer this.mu.Unlock()

	if this.pending == nil {
		return Item{}, false
	}

	item := *this.pending
	this.pending = nil

	atomic.AddUint64(&this.reads, 1)

	return item, true
}

// Stats can be called without holding the Mailbox lock.
func (this *Mailbox) Stats() MailboxStats {
	return MailboxStats{
		Writes:     atomic.LoadUint64(&this.writes),
		Overwrites: atomic.LoadUint64(&this.overwrites),
		Reads:      atomic.LoadUint64(&this.reads),
	}
}
