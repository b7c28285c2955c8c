package longpoll

import (
	"encoding/json"
	"net/http"
	"time"

	metrics "github.com/rcrowley/go-metrics"
	"github.com/rs/cors"
	"golang.org/x/net/websocket"
)

// Handler mounts the longpoll endpoint next to the endpoints it is compared
// against:
//
//	/longpoll       - m
//	/http, /poll    - a freshly generated Item on every request
//	/socket         - websocket echo with a periodic server time push
//	/debug/metrics  - the Manager's metrics registry as JSON
//
// Requests from any origin are allowed.
func Handler(m *Manager, opts ...HandlerOption) http.Handler {
	o := newHandlerOptions(opts...)

	mux := http.NewServeMux()
	mux.Handle("/longpoll", m)
	mux.Handle("/http", SnapshotHandler(m.Generator()))
	mux.Handle("/poll", SnapshotHandler(m.Generator()))
	mux.Handle("/socket", SocketHandler(o.pushInterval))
	mux.Handle("/debug/metrics", MetricsHandler(m.Registry()))

	return cors.AllowAll().Handler(mux)
}

// SnapshotHandler answers every request right away with a new Item built
// from gen. It never touches a Mailbox.
func SnapshotHandler(gen Generator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		item := NewItem(gen(), time.Now())

		log().V(7).Info("sending snapshot", "url", r.URL, "data", item.Data)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		if err := json.NewEncoder(w).Encode(item); err != nil {
			log().Error(err, "writing snapshot")
		}
	})
}

// SocketHandler greets each connection, echoes back whatever it receives and
// pushes the server time every interval until the connection closes.
func SocketHandler(interval time.Duration) http.Handler {
	return websocket.Server{
		// Any origin is accepted, same as the CORS policy.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()

			logger := log().WithValues("remote", ws.Request().RemoteAddr)
			logger.V(5).Info("client connected")

			if err := websocket.Message.Send(ws, "Welcome to the WebSocket server!"); err != nil {
				logger.Error(err, "sending welcome")
				return
			}

			done := make(chan struct{})
			defer close(done)

			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				for {
					select {
					case <-done:
						return
					case t := <-ticker.C:
						if err := websocket.Message.Send(ws, "Server time: "+FormatTimestamp(t)); err != nil {
							logger.V(5).Info("push failed", "error", err.Error())
							return
						}
					}
				}
			}()

			for {
				var msg string
				if err := websocket.Message.Receive(ws, &msg); err != nil {
					logger.V(5).Info("client disconnected")
					return
				}

				logger.V(7).Info("received", "message", msg)

				if err := websocket.Message.Send(ws, "Server received: "+msg); err != nil {
					logger.Error(err, "echoing message")
					return
				}
			}
		},
	}
}

func MetricsHandler(r metrics.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		metrics.WriteJSONOnce(r, w)
	})
}
