package longpoll

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
)

func NewPesterClient(retries int) *pester.Client {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = retries
	client.LogHook = func(e pester.ErrEntry) {
		log().V(3).Info("retrying after failed attempt", "url", e.URL, "attempt", e.Retry, "error", errString(e.Err))
	}

	return client
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}

// Poller short polls a snapshot endpoint on a fixed interval.
type Poller struct {
	options pollerOptions
}

func NewPoller(opts ...PollerOption) *Poller {
	return &Poller{options: newPollerOptions(opts...)}
}

// Get fetches one snapshot.
func (this *Poller) Get(ctx context.Context, path string) (Event, error) {
	req, err := http.NewRequest(http.MethodGet, this.options.endpoint+path, nil)
	if err != nil {
		return Event{}, errors.Wrap(err, "creating new HTTP request")
	}

	resp, err := this.options.client.Do(req.WithContext(ctx))
	if err != nil {
		return Event{}, errors.Wrap(err, "making HTTP request")
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Event{}, errors.Wrapf(ErrBadStatus, "status %d", resp.StatusCode)
	}

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return Event{}, errors.Wrap(err, "reading HTTP response body")
	}

	var e Event

	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, errors.Wrap(err, "unmarshaling snapshot")
	}

	return e, nil
}

// Poll fetches path right away and then every interval until ctx is done,
// sending each snapshot on events.
func (this *Poller) Poll(ctx context.Context, path string, every time.Duration, events chan<- Event) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		e, err := this.Get(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return errors.Wrap(err, "get call -- poll function")
		}

		select {
		case events <- e:
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
