package ssehub

import (
	"encoding/json"
	"net/http"

	"github.com/juju/ratelimit"
)

// emitRequest is the publish request body accepted by the emit endpoint.
type emitRequest struct {
	Kind    string          `json:"kind"` // broadcast | user | client
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	ID      string          `json:"id,omitempty"`
	User    string          `json:"user,omitempty"`
	Client  string          `json:"client,omitempty"`
}

// emitResponse reports the instantaneous registry sizes after a publish.
type emitResponse struct {
	Clients int `json:"clients"`
	Users   int `json:"users"`
}

// emitHandler validates publish requests and routes them to the registry.
// Malformed input never reaches the registry; delivery failures never
// surface here (dead peers are the connection's concern).
type emitHandler struct {
	registry *Registry
	bucket   *ratelimit.Bucket // optional publish throttle
}

func (eh emitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if eh.bucket != nil && eh.bucket.TakeAvailable(1) == 0 {
		http.Error(w, "emit rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req emitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed emit request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Event == "" {
		http.Error(w, "emit request requires an event name", http.StatusBadRequest)
		return
	}

	ev := Event{ID: req.ID, Event: req.Event}
	if len(req.Payload) > 0 {
		ev.Data = req.Payload
	}

	switch req.Kind {
	case "broadcast":
		eh.registry.Broadcast(ev)
	case "user":
		if req.User == "" {
			http.Error(w, "target kind user requires a user id", http.StatusBadRequest)
			return
		}
		eh.registry.SendToUser(req.User, ev)
	case "client":
		if req.Client == "" {
			http.Error(w, "target kind client requires a connection id", http.StatusBadRequest)
			return
		}
		eh.registry.SendToClient(req.Client, ev)
	default:
		http.Error(w, "unknown target kind: "+req.Kind, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(emitResponse{
		Clients: eh.registry.ClientsCount(),
		Users:   eh.registry.UsersCount(),
	})
}
