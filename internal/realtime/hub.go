// Package realtime pushes change signals to an owner's open websocket
// sessions so clients know to refetch.
package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/olahol/melody"

	"chitieu/internal/core"
	"chitieu/internal/log"
)

const ownerKey = "owner"

// EventRecordsChanged is the type of the signal sent after a mutation.
const EventRecordsChanged = "records:changed"

type Message struct {
	Type string    `json:"type"`
	Kind core.Kind `json:"kind,omitempty"`
}

type Hub struct {
	m      *melody.Melody
	logger *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Discard()
	}
	h := &Hub{
		m:      melody.New(),
		logger: logger.WithComponent(log.ComponentRealtime),
	}

	h.m.Config.MaxMessageSize = 4096
	h.m.Config.PingPeriod = 30 * time.Second
	h.m.Config.PongWait = 60 * time.Second

	h.m.HandleConnect(func(s *melody.Session) {
		owner, _ := s.Get(ownerKey)
		h.logger.Debug("Session connected", log.FieldOwner, owner)
	})
	h.m.HandleDisconnect(func(s *melody.Session) {
		owner, _ := s.Get(ownerKey)
		h.logger.Debug("Session disconnected", log.FieldOwner, owner)
	})
	h.m.HandleError(func(s *melody.Session, err error) {
		owner, _ := s.Get(ownerKey)
		h.logger.Warn("Websocket error", log.FieldOwner, owner, log.FieldError, err.Error())
	})

	return h
}

// HandleRequest upgrades r and tags the session with owner.
func (h *Hub) HandleRequest(w http.ResponseWriter, r *http.Request, owner string) error {
	return h.m.HandleRequestWithKeys(w, r, map[string]any{ownerKey: owner})
}

// NotifyChanged tells every session of owner that records of kind changed.
func (h *Hub) NotifyChanged(owner string, kind core.Kind) {
	msg, err := json.Marshal(Message{Type: EventRecordsChanged, Kind: kind})
	if err != nil {
		return
	}
	err = h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
		v, ok := s.Get(ownerKey)
		return ok && v == owner
	})
	if err != nil {
		h.logger.Warn("Broadcast failed", log.FieldOwner, owner, log.FieldError, err.Error())
	}
}

// Sessions is the number of open sessions.
func (h *Hub) Sessions() int {
	return h.m.Len()
}

func (h *Hub) Close() error {
	return h.m.Close()
}
