package identity

import (
	"bytes"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("peer not found")

// Directory is an in-memory registry of known peers keyed by PeerID. It is
// useful for tests, examples and embedding in applications.
type Directory struct {
	mu    sync.RWMutex
	peers map[PeerID]Peer
}

func NewDirectory() *Directory {
	return &Directory{peers: map[PeerID]Peer{}}
}

func clonePeer(p Peer) Peer {
	p.UID = bytes.Clone(p.UID)
	p.Z = bytes.Clone(p.Z)
	return p
}

func (d *Directory) Announce(p Peer) error {
	if p.PublicKey == nil {
		return errors.New("peer has no public key")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers[p.PeerID()] = clonePeer(p)
	return nil
}

func (d *Directory) Lookup(id PeerID) (Peer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.peers[id]
	if !ok {
		return Peer{}, ErrNotFound
	}
	return clonePeer(p), nil
}

func (d *Directory) Remove(id PeerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.peers, id)
}

func (d *Directory) List() []Peer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Peer, 0, len(d.peers))
	for _, p := range d.peers {
		out = append(out, clonePeer(p))
	}
	return out
}
