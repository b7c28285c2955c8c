package longpoll

import (
	"net/http"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/sethgrid/pester"
)

const (
	DefaultProduceInterval = 10 * time.Second
	DefaultPollInterval    = 1 * time.Second
	DefaultTimeout         = 20 * time.Second
	DefaultMaxTimeout      = 120 * time.Second
	DefaultPushInterval    = 5 * time.Second
	DefaultRetryDelay      = 2 * time.Second
	DefaultMaxRetries      = 5
)

type ManagerOption func(*managerOptions)

type managerOptions struct {
	produceInterval time.Duration
	pollInterval    time.Duration
	timeout         time.Duration
	maxTimeout      time.Duration
	generator       Generator
	registry        metrics.Registry
	prefix          string
}

func newManagerOptions(opts ...ManagerOption) managerOptions {
	o := managerOptions{
		produceInterval: DefaultProduceInterval,
		pollInterval:    DefaultPollInterval,
		timeout:         DefaultTimeout,
		maxTimeout:      DefaultMaxTimeout,
		generator:       Letters(),
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.registry == nil {
		o.registry = metrics.NewRegistry()
	}

	if o.maxTimeout < o.timeout {
		o.maxTimeout = o.timeout
	}

	return o
}

func ProduceInterval(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		o.produceInterval = d
	}
}

func PollInterval(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		o.pollInterval = d
	}
}

// Timeout is how long a request waits when it doesn't ask for a timeout of
// its own.
func Timeout(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		o.timeout = d
	}
}

// MaxTimeout caps the timeout a request may ask for.
func MaxTimeout(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		o.maxTimeout = d
	}
}

func WithGenerator(g Generator) ManagerOption {
	return func(o *managerOptions) {
		o.generator = g
	}
}

// Registry sets the registry the Manager reports to. Managers sharing a
// registry need distinct MetricsPrefix values, otherwise the mailbox gauges
// of all but the first one are dropped.
func Registry(r metrics.Registry) ManagerOption {
	return func(o *managerOptions) {
		o.registry = r
	}
}

// MetricsPrefix is prepended to the name of every metric the Manager
// registers.
func MetricsPrefix(p string) ManagerOption {
	return func(o *managerOptions) {
		o.prefix = p
	}
}

type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	pushInterval time.Duration
}

func newHandlerOptions(opts ...HandlerOption) handlerOptions {
	o := handlerOptions{pushInterval: DefaultPushInterval}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// PushInterval sets how often the socket endpoint sends the server time.
func PushInterval(d time.Duration) HandlerOption {
	return func(o *handlerOptions) {
		o.pushInterval = d
	}
}

type WatcherOption func(*watcherOptions)

type watcherOptions struct {
	endpoint   string
	transport  http.RoundTripper
	timeout    time.Duration
	retryDelay time.Duration
	maxRetries uint64
}

func newWatcherOptions(opts ...WatcherOption) watcherOptions {
	o := watcherOptions{
		transport:  http.DefaultTransport,
		retryDelay: DefaultRetryDelay,
		maxRetries: DefaultMaxRetries,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}

func Endpoint(e string) WatcherOption {
	return func(o *watcherOptions) {
		o.endpoint = e
	}
}

func Transport(t http.RoundTripper) WatcherOption {
	return func(o *watcherOptions) {
		o.transport = t
	}
}

// WaitTimeout is sent as the timeout parameter of every request. Zero leaves
// the server default in place.
func WaitTimeout(d time.Duration) WatcherOption {
	return func(o *watcherOptions) {
		o.timeout = d
	}
}

// RetryDelay is how long the Watcher waits before re-issuing a request that
// failed in transport.
func RetryDelay(d time.Duration) WatcherOption {
	return func(o *watcherOptions) {
		o.retryDelay = d
	}
}

func MaxRetries(n uint64) WatcherOption {
	return func(o *watcherOptions) {
		o.maxRetries = n
	}
}

type PollerOption func(*pollerOptions)

type pollerOptions struct {
	endpoint string
	client   *pester.Client
}

func newPollerOptions(opts ...PollerOption) pollerOptions {
	var o pollerOptions

	for _, opt := range opts {
		opt(&o)
	}

	if o.client == nil {
		o.client = NewPesterClient(DefaultMaxRetries)
	}

	return o
}

func PollEndpoint(e string) PollerOption {
	return func(o *pollerOptions) {
		o.endpoint = e
	}
}

func PesterClient(c *pester.Client) PollerOption {
	return func(o *pollerOptions) {
		o.client = c
	}
}
