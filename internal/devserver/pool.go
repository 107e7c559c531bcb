package devserver

import (
	"math/rand/v2"
	"net/http"
	"sync/atomic"

	"git.home.luguber.info/inful/suitescheduler/internal/metrics"
)

// Pool is a fixed set of metadata servers with per-call selection. Pick
// rotates round-robin, PickRandom draws uniformly; both spread load without
// cross-call coordination, and no server is primary.
type Pool struct {
	servers []*Server
	next    atomic.Uint64
	rec     metrics.Recorder
}

// NewPool builds a pool for the given base URLs. A nil httpClient or
// recorder falls back to defaults.
func NewPool(urls []string, httpClient *http.Client, rec metrics.Recorder) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrEmptyPool
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	servers := make([]*Server, 0, len(urls))
	for _, u := range urls {
		servers = append(servers, NewServer(u, httpClient))
	}
	return &Pool{servers: servers, rec: rec}, nil
}

// Pick returns the next server in rotation.
func (p *Pool) Pick() *Server {
	i := p.next.Add(1) - 1
	s := p.servers[i%uint64(len(p.servers))]
	p.rec.IncDevserverPick(s.Name())
	return s
}

// PickRandom returns a uniformly chosen server.
func (p *Pool) PickRandom() *Server {
	s := p.servers[rand.IntN(len(p.servers))]
	p.rec.IncDevserverPick(s.Name())
	return s
}

// Size reports the number of servers in the pool.
func (p *Pool) Size() int { return len(p.servers) }

// Names lists the servers in configuration order.
func (p *Pool) Names() []string {
	names := make([]string, 0, len(p.servers))
	for _, s := range p.servers {
		names = append(names, s.Name())
	}
	return names
}
