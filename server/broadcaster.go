package server

import (
	"sync"

	"feedhub/models"

	log "github.com/sirupsen/logrus"
)

// Broadcaster fans feed updates out to the connected SSE clients
type Broadcaster struct {
	sync.RWMutex
	clients map[string]chan models.FeedUpdateEvent
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]chan models.FeedUpdateEvent),
	}
}

// Broadcast never blocks. Clients with a full channel miss the event.
func (b *Broadcaster) Broadcast(event models.FeedUpdateEvent) {
	b.RLock()
	defer b.RUnlock()

	for id, client := range b.clients {
		select {
		case client <- event:
		default:
			log.Warnf("Client channel full, skipping feed update for client: %v", id)
		}
	}
}

func (b *Broadcaster) AddClient(key string, client chan models.FeedUpdateEvent) {
	b.Lock()
	defer b.Unlock()
	b.clients[key] = client
	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Adding client to broadcaster")
}

// RemoveClient closes the client channel. Unknown keys are ignored.
func (b *Broadcaster) RemoveClient(key string) bool {
	b.Lock()
	defer b.Unlock()

	client, ok := b.clients[key]
	if !ok {
		return false
	}
	close(client)
	delete(b.clients, key)

	log.WithFields(log.Fields{
		"key":   key,
		"count": len(b.clients),
	}).Info("Removed client from broadcaster")
	return true
}

func (b *Broadcaster) Count() int {
	b.RLock()
	defer b.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) Shutdown() {
	log.Info("Shutting down broadcaster")
	b.Lock()
	defer b.Unlock()
	for key, client := range b.clients {
		close(client)
		delete(b.clients, key)
	}
}
