// Package feed pushes listing changes to websocket subscribers.
package feed

import (
	"github.com/npezzotti/roomrent/internal/stats"
	"github.com/npezzotti/roomrent/internal/types"
	"go.uber.org/zap"
)

const broadcastBufferSize = 256

// Hub owns the subscriber set. All changes to it happen on the Run goroutine.
type Hub struct {
	log            *zap.Logger
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	registerChan   chan *Client
	deregisterChan chan *Client
	broadcastChan  chan *ServerMessage
	stop           chan struct{}
	done           chan struct{}
}

func NewHub(logger *zap.Logger, sp stats.StatsProvider) *Hub {
	return &Hub{
		log:            logger,
		stats:          sp,
		clients:        make(map[*Client]struct{}),
		registerChan:   make(chan *Client),
		deregisterChan: make(chan *Client),
		broadcastChan:  make(chan *ServerMessage, broadcastBufferSize),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.registerChan:
			h.clients[c] = struct{}{}
			h.stats.Incr(stats.FeedClients)
			c.queueMessage(&ServerMessage{Timestamp: Now(), Hello: &Hello{Clients: len(h.clients)}})
			h.log.Debug("feed client registered", zap.Int("clients", len(h.clients)))
		case c := <-h.deregisterChan:
			h.removeClient(c)
		case msg := <-h.broadcastChan:
			for c := range h.clients {
				if !c.queueMessage(msg) {
					h.removeClient(c)
				}
			}
		case <-h.stop:
			for c := range h.clients {
				h.removeClient(c)
			}
			close(h.done)
			return
		}
	}
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	delete(h.clients, c)
	h.stats.Decr(stats.FeedClients)
	h.log.Debug("feed client removed", zap.Int("clients", len(h.clients)))
	c.stopClient()
}

// Register adds c to the hub. It returns false if the hub has shut down.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.registerChan <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) deregister(c *Client) {
	select {
	case h.deregisterChan <- c:
	case <-h.done:
	}
}

// Publish queues ev for every subscriber. It never blocks; when the hub is
// backed up the event is dropped.
func (h *Hub) Publish(ev types.RoomEvent) {
	select {
	case h.broadcastChan <- &ServerMessage{Timestamp: Now(), Event: &ev}:
	default:
		h.log.Warn("feed backed up, dropping event", zap.String("type", ev.Type), zap.String("room_id", ev.RoomId))
	}
}

func (h *Hub) Shutdown() {
	h.log.Info("shutting down listing feed")
	close(h.stop)
	<-h.done
}
