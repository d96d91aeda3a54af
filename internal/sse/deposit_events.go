package sse

import (
	"context"
	"sync"

	"ms-deposits/internal/models"
)

// allOwners is the subscription key for clients that want every deposit.
const allOwners = ""

// DepositEventEmitter fans deposit events out to connected dashboards.
type DepositEventEmitter struct {
	// key: owner name, or allOwners
	clients     map[string][]chan models.DepositEvent
	clientMutex sync.RWMutex
}

func NewDepositEventEmitter() *DepositEventEmitter {
	return &DepositEventEmitter{
		clients: make(map[string][]chan models.DepositEvent),
	}
}

// Subscribe registers a client for one owner's deposits, or all deposits
// when owner is empty. The channel is closed once ctx is done.
func (e *DepositEventEmitter) Subscribe(ctx context.Context, owner string) chan models.DepositEvent {
	clientChan := make(chan models.DepositEvent, 10)

	e.clientMutex.Lock()
	e.clients[owner] = append(e.clients[owner], clientChan)
	e.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(owner, clientChan)
	}()

	return clientChan
}

// Emit never blocks; a client whose buffer is full misses the event.
func (e *DepositEventEmitter) Emit(event models.DepositEvent) {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()

	e.send(e.clients[allOwners], event)
	if owner := event.Deposit.Owner; owner != allOwners {
		e.send(e.clients[owner], event)
	}
}

func (e *DepositEventEmitter) send(clients []chan models.DepositEvent, event models.DepositEvent) {
	for _, clientChan := range clients {
		select {
		case clientChan <- event:
		default:
		}
	}
}

func (e *DepositEventEmitter) removeClient(owner string, clientChan chan models.DepositEvent) {
	e.clientMutex.Lock()
	defer e.clientMutex.Unlock()

	clients := e.clients[owner]
	for i, ch := range clients {
		if ch == clientChan {
			e.clients[owner] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(e.clients[owner]) == 0 {
		delete(e.clients, owner)
	}
}

// ClientCount returns the number of clients subscribed under owner
func (e *DepositEventEmitter) ClientCount(owner string) int {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()
	return len(e.clients[owner])
}
