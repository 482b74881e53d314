package ssehub

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handshakeEvent is the first named event sent on every new stream,
// carrying the connection's own id back to the client.
const handshakeEvent = "connected"

type handshakePayload struct {
	ConnectionID string `json:"connectionId"`
	UserID       string `json:"userId,omitempty"`
}

// streamHandler accepts subscribe requests and turns them into registered
// connections whose outgoing byte stream is the response body.
type streamHandler struct {
	registry *Registry
	conf     serverConfig
	metrics  *hubMetrics
}

func (sh streamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// user may arrive as a path segment or a query parameter
	user := chi.URLParam(r, "user")
	if user == "" {
		user = r.URL.Query().Get("user")
	}

	// override RemoteAddr to trust proxy IP headers if they exist
	// pattern taken from http://git.io/xDD3Mw
	ip := r.Header.Get("X-Real-IP")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
	}
	if ip != "" {
		r.RemoteAddr = ip
	}

	log.Println("CONNECT\t", user, "\t", r.RemoteAddr)

	headers := w.Header()
	if sh.conf.CORSAllowOrigin != "" {
		headers.Set("Access-Control-Allow-Origin", sh.conf.CORSAllowOrigin)
	}
	headers.Set("Content-Type", "text/event-stream; charset=utf-8")
	headers.Set("Cache-Control", "no-cache, no-transform")
	headers.Set("Connection", "keep-alive")
	headers.Set("Server", "ssehub")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	c := NewConnection(user, w)
	c.remoteAddr = r.RemoteAddr
	c.userAgent = r.UserAgent()
	sh.registry.Add(c)
	sh.registry.StartHeartbeat(c.ID, sh.conf.HeartbeatInterval)

	// handshake goes out asynchronously, once the response stream has
	// begun, so the client observes an open transport before the first
	// named frame. A failed handshake is logged, not fatal: the stream
	// stays usable for heartbeats and later targeted sends.
	go func(id, user string) {
		err := c.Send(Event{
			Event: handshakeEvent,
			Data:  handshakePayload{ConnectionID: id, UserID: user},
		})
		if err != nil {
			log.Println("HANDSHAKE FAILED\t", id, "\t", err)
			return
		}
		sh.metrics.handshake()
	}(c.ID, user)

	defer func() {
		log.Println("DISCONNECT\t", user, "\t", r.RemoteAddr)
		sh.registry.Remove(c.ID)
	}()

	c.writer(r.Context().Done())
}
