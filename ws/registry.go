package ws

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"github.com/tcriess/lightspeed-code/config"
	"github.com/tcriess/lightspeed-code/globals"
	"github.com/tcriess/lightspeed-code/persistence"
	"github.com/tcriess/lightspeed-code/plugins"
	"github.com/tcriess/lightspeed-code/room"
	"github.com/tcriess/lightspeed-code/types"
)

// Registry creates hubs on first join and keeps rooms without members in an LRU cache. Evicted rooms are flushed
// to the persister and stopped, the next join loads them again.
type Registry struct {
	cfg           *config.Config
	persister     persistence.Persister
	collaborators *plugins.Collaborators

	// all running hubs and the number of connections holding each of them
	hubs map[string]*Hub
	refs map[string]int
	// ids of running hubs without members, nil if idle rooms are stopped right away
	idle *lru.Cache

	logger hclog.Logger

	sync.Mutex
}

func NewRegistry(cfg *config.Config, persister persistence.Persister, collaborators *plugins.Collaborators) (*Registry, error) {
	r := &Registry{
		cfg:           cfg,
		persister:     persister,
		collaborators: collaborators,
		hubs:          make(map[string]*Hub),
		refs:          make(map[string]int),
		logger:        globals.AppLogger.Named("registry"),
	}
	if cfg.RoomsConfig.IdleRooms > 0 {
		idle, err := lru.NewWithEvict(cfg.RoomsConfig.IdleRooms, r.evicted)
		if err != nil {
			return nil, err
		}
		r.idle = idle
	}
	return r, nil
}

// evicted is called by the idle cache from within Add/Remove, i.e. with the registry locked.
func (r *Registry) evicted(key, _ interface{}) {
	roomId := key.(string)
	if r.refs[roomId] > 0 {
		// removed from the idle cache because it is in use again
		return
	}
	r.stopLocked(roomId)
}

func (r *Registry) stopLocked(roomId string) {
	h, ok := r.hubs[roomId]
	if !ok {
		return
	}
	delete(r.hubs, roomId)
	delete(r.refs, roomId)
	r.logger.Debug("stopping idle room", "room", roomId)
	h.Stop()
}

// Acquire returns the running hub of roomId, starting it if necessary. Every Acquire must be paired with a Release.
func (r *Registry) Acquire(roomId string) *Hub {
	r.Lock()
	defer r.Unlock()
	r.refs[roomId]++
	if h, ok := r.hubs[roomId]; ok {
		if r.refs[roomId] == 1 && r.idle != nil {
			r.idle.Remove(roomId)
		}
		return h
	}
	h := NewHub(roomId, r.cfg, r.persister, r.collaborators)
	r.hubs[roomId] = h
	go h.Run()
	r.logger.Info("started room", "room", roomId)
	return h
}

func (r *Registry) Release(roomId string) {
	r.Lock()
	defer r.Unlock()
	if r.refs[roomId] <= 0 {
		return
	}
	r.refs[roomId]--
	if r.refs[roomId] > 0 {
		return
	}
	if r.idle == nil {
		r.stopLocked(roomId)
		return
	}
	r.idle.Add(roomId, struct{}{})
}

// Rooms returns the ids of the running rooms.
func (r *Registry) Rooms() []string {
	r.Lock()
	defer r.Unlock()
	res := make([]string, 0, len(r.hubs))
	for id := range r.hubs {
		res = append(res, id)
	}
	sort.Strings(res)
	return res
}

// Files returns the files of a room, from its hub if it is running, from the persister otherwise.
func (r *Registry) Files(roomId string) ([]types.File, error) {
	r.Lock()
	h := r.hubs[roomId]
	r.Unlock()
	if h != nil {
		if files, ok := h.Files(); ok {
			return files, nil
		}
	}
	if r.persister == nil {
		return []types.File{}, nil
	}
	return r.persister.LoadFiles(roomId)
}

// File returns one file of a room like Files does, room.ErrFileNotFound if the room has no such file.
func (r *Registry) File(roomId, filename string) (types.File, error) {
	r.Lock()
	h := r.hubs[roomId]
	r.Unlock()
	if h != nil {
		if files, ok := h.Files(); ok {
			for _, f := range files {
				if f.Name == filename {
					return f, nil
				}
			}
			return types.File{}, fmt.Errorf("%w: %s", room.ErrFileNotFound, filename)
		}
	}
	if r.persister == nil {
		return types.File{}, fmt.Errorf("%w: %s", room.ErrFileNotFound, filename)
	}
	f, err := r.persister.LoadFile(roomId, filename)
	if errors.Is(err, persistence.ErrNotFound) {
		return types.File{}, fmt.Errorf("%w: %s", room.ErrFileNotFound, filename)
	}
	return f, err
}

// Serve runs a new client on conn until the connection is closed.
func (r *Registry) Serve(conn *websocket.Conn) {
	c := NewClient(r, conn)
	r.logger.Debug("client connected", "connection", c.Id())
	c.Serve()
	r.logger.Debug("client disconnected", "connection", c.Id())
}

// Close stops all hubs, flushing their files.
func (r *Registry) Close() {
	r.Lock()
	defer r.Unlock()
	for roomId := range r.hubs {
		r.stopLocked(roomId)
	}
	if r.idle != nil {
		r.idle.Purge()
	}
}
