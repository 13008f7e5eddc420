package therver

import "sync"

// registry replaces the original's process-wide atfork-registered chain of
// live servers. Go has no supported fork()-without-exec for goroutine-ful
// programs, so there is no real analogue of pre-fork-lock / post-fork-
// unlock / child-marks-inactive here — this is introspection only,
// documented as such (see SPEC_FULL.md §5 and §9). Fork after Start is
// unsupported.
var (
	registryMu sync.Mutex
	registry   = map[string]*Server{}
)

func register(s *Server) {
	registryMu.Lock()
	registry[s.id] = s
	registryMu.Unlock()
}

func unregister(id string) {
	registryMu.Lock()
	delete(registry, id)
	registryMu.Unlock()
}

// Info is a point-in-time snapshot of one live server, for the /healthz
// endpoint.
type Info struct {
	ID      string
	Addr    string
	Workers int
	Active  bool
}

// Snapshot returns Info for every currently registered server.
func Snapshot() []Info {
	registryMu.Lock()
	defer registryMu.Unlock()

	out := make([]Info, 0, len(registry))
	for _, s := range registry {
		out = append(out, Info{
			ID:      s.id,
			Addr:    s.Addr().String(),
			Workers: s.workers,
			Active:  s.active.Load(),
		})
	}
	return out
}
