package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bombsimon/logrusr/v4"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	longpoll "actshad.dev/longpoll-demo"
)

type config struct {
	addr            string
	produceInterval time.Duration
	pollInterval    time.Duration
	timeout         time.Duration
	maxTimeout      time.Duration
	pushInterval    time.Duration
	generator       string
	verbosity       int
}

func newRootCmd() *cobra.Command {
	var c config

	cmd := &cobra.Command{
		Use:   "longpolld",
		Short: "longpolld serves new data to long polling clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), c)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVar(&c.addr, "addr", ":3001", "address to listen on")
	f.DurationVar(&c.produceInterval, "produce-interval", longpoll.DefaultProduceInterval, "how often new data is produced")
	f.DurationVar(&c.pollInterval, "poll-interval", longpoll.DefaultPollInterval, "how often a waiting request checks for data")
	f.DurationVar(&c.timeout, "timeout", longpoll.DefaultTimeout, "how long a request waits for data by default")
	f.DurationVar(&c.maxTimeout, "max-timeout", longpoll.DefaultMaxTimeout, "longest wait a request may ask for")
	f.DurationVar(&c.pushInterval, "push-interval", longpoll.DefaultPushInterval, "how often the socket endpoint pushes the server time")
	f.StringVar(&c.generator, "generator", "letters", "payload generator: letters, float or int")
	f.IntVarP(&c.verbosity, "verbosity", "v", 0, "log verbosity (0 info, 1 debug, 2+ trace)")

	return cmd
}

func generator(name string) longpoll.Generator {
	switch name {
	case "float":
		return longpoll.RandomFloat()
	case "int":
		return longpoll.RandomInt(100)
	default:
		return longpoll.Letters()
	}
}

func run(ctx context.Context, c config) error {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	switch {
	case c.verbosity >= 2:
		l.SetLevel(logrus.TraceLevel)
	case c.verbosity == 1:
		l.SetLevel(logrus.DebugLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}

	logger := logrusr.New(l)
	longpoll.SetLogger(logger)

	mgr := longpoll.NewManager(
		longpoll.ProduceInterval(c.produceInterval),
		longpoll.PollInterval(c.pollInterval),
		longpoll.Timeout(c.timeout),
		longpoll.MaxTimeout(c.maxTimeout),
		longpoll.WithGenerator(generator(c.generator)),
	)

	g, ctx := errgroup.WithContext(ctx)

	// The Manager answers waiting requests with 204 once mgr.Start returns,
	// which lets Shutdown drain them.
	srv := &http.Server{
		Addr:    c.addr,
		Handler: longpoll.Handler(mgr, longpoll.PushInterval(c.pushInterval)),
	}

	g.Go(func() error {
		return mgr.Start(ctx)
	})

	g.Go(func() error {
		logger.Info("long polling server running", "addr", c.addr)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(sctx)
	})

	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
