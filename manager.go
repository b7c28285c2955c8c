package longpoll

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	metrics "github.com/rcrowley/go-metrics"
)

const (
	metricRequests   = "longpoll.requests"
	metricDelivered  = "longpoll.delivered"
	metricTimedOut   = "longpoll.timedout"
	metricAborted    = "longpoll.aborted"
	metricDrained    = "longpoll.drained"
	metricInvalid    = "longpoll.invalid"
	metricWait       = "longpoll.wait"
	metricWrites     = "mailbox.writes"
	metricOverwrites = "mailbox.overwrites"
	metricReads      = "mailbox.reads"
)

// Manager serves longpoll requests from the Mailbox fed by its Source. Every
// request gets exactly one response: the next unread Item, or 204 once its
// wait deadline passes, or as soon as the Manager stops. Requests whose
// client goes away get no response.
type Manager struct {
	options managerOptions

	mailbox *Mailbox
	source  *Source

	stopped  chan struct{}
	stopOnce sync.Once

	requests  metrics.Counter
	delivered metrics.Counter
	timedOut  metrics.Counter
	aborted   metrics.Counter
	drained   metrics.Counter
	invalid   metrics.Counter
	wait      metrics.Timer
}

func NewManager(opts ...ManagerOption) *Manager {
	var (
		o  = newManagerOptions(opts...)
		mb = NewMailbox()
		r  = o.registry
	)

	if o.prefix != "" {
		r = metrics.NewPrefixedChildRegistry(r, o.prefix)
	}

	this := &Manager{
		options:   o,
		mailbox:   mb,
		source:    NewSource(mb, o.generator, o.produceInterval),
		stopped:   make(chan struct{}),
		requests:  metrics.GetOrRegisterCounter(metricRequests, r),
		delivered: metrics.GetOrRegisterCounter(metricDelivered, r),
		timedOut:  metrics.GetOrRegisterCounter(metricTimedOut, r),
		aborted:   metrics.GetOrRegisterCounter(metricAborted, r),
		drained:   metrics.GetOrRegisterCounter(metricDrained, r),
		invalid:   metrics.GetOrRegisterCounter(metricInvalid, r),
		wait:      metrics.GetOrRegisterTimer(metricWait, r),
	}

	r.GetOrRegister(metricWrites, metrics.NewFunctionalGauge(func() int64 {
		return int64(mb.Stats().Writes)
	}))
	r.GetOrRegister(metricOverwrites, metrics.NewFunctionalGauge(func() int64 {
		return int64(mb.Stats().Overwrites)
	}))
	r.GetOrRegister(metricReads, metrics.NewFunctionalGauge(func() int64 {
		return int64(mb.Stats().Reads)
	}))

	return this
}

// Start runs the Source until ctx is done. Requests still waiting when
// Start returns are answered with 204, as are any that arrive later.
func (this *Manager) Start(ctx context.Context) error {
	log().Info("starting HTTP longpoll manager")
	defer this.stop()

	return this.source.Start(ctx)
}

func (this *Manager) stop() {
	this.stopOnce.Do(func() { close(this.stopped) })
}

// waitContext is done when the client goes away or the Manager stops.
func (this *Manager) waitContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r.Context())

	go func() {
		select {
		case <-this.stopped:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// Publish writes data into the Mailbox right away, outside the Source's
// cadence.
func (this *Manager) Publish(data interface{}) Item {
	item := this.source.write(data)
	log().V(9).Info("published item", "item", item.ID)

	return item
}

func (this *Manager) Mailbox() *Mailbox {
	return this.mailbox
}

func (this *Manager) Registry() metrics.Registry {
	return this.options.registry
}

// Generator is the payload generator shared with the snapshot endpoints.
func (this *Manager) Generator() Generator {
	return this.options.generator
}

func (this *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.Must(uuid.NewV4())
	logger := log().WithValues("url", r.URL, "id", id)

	logger.V(5).Info("handling HTTP request")

	// We'll return JSON no matter what
	w.Header().Set("Content-Type", "application/json")

	// Don't cache response
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate") // HTTP 1.1
	w.Header().Set("Pragma", "no-cache")                                   // HTTP 1.0
	w.Header().Set("Expires", "0")                                         // Proxies

	w.Header().Set("X-Request-Id", id.String())

	// A HEAD response can't carry the Item, so it must not consume one.
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write([]byte(`{"error": "method not allowed"}`))

		return
	}

	timeout, err := this.timeout(r)
	if err != nil {
		logger.Error(err, "invalid timeout request")
		this.invalid.Inc(1)

		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid timeout parameter"}`))

		return
	}

	this.requests.Inc(1)
	logger.V(9).Info("request parameters", "timeout", timeout.String())

	ctx, cancel := this.waitContext(r)
	defer cancel()

	res := NewWaitLoop(this.mailbox, timeout, this.options.pollInterval).Wait(ctx)
	this.wait.Update(res.Elapsed())

	if res.Outcome == Aborted && r.Context().Err() == nil {
		this.drained.Inc(1)
		logger.V(7).Info("manager stopped while waiting")

		w.Header().Del("Content-Type")
		w.WriteHeader(http.StatusNoContent)

		return
	}

	switch res.Outcome {
	case Delivered:
		this.delivered.Inc(1)
		logger.V(7).Info("response for request", "item", res.Item.ID)

		m, err := json.Marshal(res.Item)
		if err != nil {
			logger.Error(err, "marshaling JSON")

			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error": "JSON marshal failure"}`))

			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write(m)
	case TimedOut:
		this.timedOut.Inc(1)
		logger.V(7).Info("timeout reached")

		w.Header().Del("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	case Aborted:
		this.aborted.Inc(1)
		logger.V(7).Info("client closed connection")
	}
}

// timeout reads the optional timeout parameter, in whole seconds.
func (this *Manager) timeout(r *http.Request) (time.Duration, error) {
	s := r.URL.Query().Get("timeout")
	if s == "" {
		return this.options.timeout, nil
	}

	t, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	d := time.Duration(t) * time.Second
	if t < 1 || d > this.options.maxTimeout {
		return 0, strconv.ErrRange
	}

	return d, nil
}
