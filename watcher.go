package longpoll

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

var ErrBadStatus = errors.New("unexpected response status")

// Event is an Item as seen by a client.
type Event struct {
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

func (this Event) Time() (time.Time, error) {
	return ParseTimestamp(this.Timestamp)
}

type failure struct {
	Error string `json:"error"`
}

// Watcher long polls a server and hands every Item it receives to the caller.
type Watcher struct {
	sync.RWMutex

	options watcherOptions
	client  *http.Client

	last  time.Time
	empty uint64
}

func NewWatcher(opts ...WatcherOption) *Watcher {
	o := newWatcherOptions(opts...)
	return &Watcher{options: o, client: &http.Client{Transport: o.transport}}
}

// Last returns when the most recent Event was received.
func (this *Watcher) Last() time.Time {
	this.RLock()
	defer this.RUnlock()

	return this.last
}

// Empty returns how many requests ended without data.
func (this *Watcher) Empty() uint64 {
	this.RLock()
	defer this.RUnlock()

	return this.empty
}

// get issues one GET. Transport failures are retried after the configured
// delay, up to the configured number of retries.
func (this *Watcher) get(ctx context.Context, uri string) (int, []byte, error) {
	var (
		code int
		body []byte
	)

	op := func() error {
		req, err := http.NewRequest(http.MethodGet, uri, nil)
		if err != nil {
			return backoff.Permanent(errors.Wrap(err, "creating new HTTP request"))
		}

		resp, err := this.client.Do(req.WithContext(ctx))
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(errors.Wrap(ctx.Err(), "context activity during HTTP request"))
			}

			log().V(3).Info("HTTP request failed, retrying", "url", uri, "error", err.Error())

			return errors.Wrap(err, "making HTTP request")
		}

		defer resp.Body.Close()

		b, err := ioutil.ReadAll(resp.Body)
		if err != nil {
			return errors.Wrap(err, "reading HTTP response body")
		}

		code, body = resp.StatusCode, b

		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(this.options.retryDelay), this.options.maxRetries),
		ctx,
	)

	if err := backoff.Retry(op, b); err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}

		return 0, nil, err
	}

	return code, body, nil
}

func (this *Watcher) uri(path string) (string, error) {
	u, err := url.Parse(this.options.endpoint + path)
	if err != nil {
		return "", errors.Wrap(err, "parsing watch URL")
	}

	if this.options.timeout > 0 {
		q := u.Query()
		q.Set("timeout", fmt.Sprintf("%d", int(this.options.timeout/time.Second)))
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// Watch long polls path until ctx is done, sending every received Event on
// events. A request that ends without data is re-issued immediately. Watch
// returns ctx.Err() once ctx is done, or the first error it can't recover
// from.
func (this *Watcher) Watch(ctx context.Context, path string, events chan<- Event) error {
	uri, err := this.uri(path)
	if err != nil {
		return err
	}

	for {
		code, body, err := this.get(ctx, uri)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			return errors.Wrap(err, "get call -- watch function")
		}

		switch code {
		case http.StatusOK:
			var e Event

			if err := json.Unmarshal(body, &e); err != nil {
				return errors.Wrap(err, "unmarshaling longpoll data")
			}

			this.Lock()
			this.last = time.Now()
			this.Unlock()

			select {
			case events <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		case http.StatusNoContent:
			this.Lock()
			this.empty++
			this.Unlock()

			log().V(7).Info("no data before timeout, polling again", "url", uri)
		case http.StatusBadRequest, http.StatusInternalServerError:
			var f failure

			if err := json.Unmarshal(body, &f); err != nil {
				return errors.Wrapf(ErrBadStatus, "status %d", code)
			}

			return errors.Wrap(errors.New(f.Error), "from longpoll server")
		default:
			return errors.Wrapf(ErrBadStatus, "status %d", code)
		}
	}
}
