package inmemory

import (
	"log/slog"
	"sync"

	"github.com/soundsync/server/internal/repository/connection"
	"github.com/soundsync/server/pkg/wsrouter"
)

type member struct {
	clientID string
	roomID   string
}

type repo struct {
	connList map[*wsrouter.Conn]member
	roomList map[string]map[*wsrouter.Conn]struct{}
	mu       sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*wsrouter.Conn]member),
		roomList: make(map[string]map[*wsrouter.Conn]struct{}),
	}
}

func (r *repo) Add(conn *wsrouter.Conn, clientID, roomID string) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "clientID", clientID, "roomID", roomID)
	if _, ok := r.connList[conn]; ok {
		slog.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = member{clientID: clientID, roomID: roomID}
	if r.roomList[roomID] == nil {
		r.roomList[roomID] = make(map[*wsrouter.Conn]struct{})
	}
	r.roomList[roomID][conn] = struct{}{}

	return nil
}

// RemoveByConn unregisters the connection and returns the client and room it
// belonged to.
func (r *repo) RemoveByConn(conn *wsrouter.Conn) (string, string, error) {
	funcName := "connection.inmemory.RemoveByConn"
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.connList[conn]
	if !ok {
		return "", "", connection.ErrNotFound
	}

	delete(r.connList, conn)
	if conns := r.roomList[m.roomID]; conns != nil {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(r.roomList, m.roomID)
		}
	}

	slog.Debug(funcName, "clientID", m.clientID, "roomID", m.roomID)
	return m.clientID, m.roomID, nil
}

func (r *repo) GetClientID(conn *wsrouter.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return m.clientID, nil
}

func (r *repo) GetRoomID(conn *wsrouter.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return m.roomID, nil
}

func (r *repo) GetConnsByRoomID(roomID string) []*wsrouter.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*wsrouter.Conn, 0, len(r.roomList[roomID]))
	for conn := range r.roomList[roomID] {
		conns = append(conns, conn)
	}

	return conns
}

func (r *repo) CountByRoomID(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.roomList[roomID])
}

// GetRoomIDs returns the rooms that currently have at least one connection.
func (r *repo) GetRoomIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roomIDs := make([]string, 0, len(r.roomList))
	for roomID := range r.roomList {
		roomIDs = append(roomIDs, roomID)
	}

	return roomIDs
}
