package metrics

import "sync"

// Broker event names. Everything funnels into one labelled counter
// family; a follow-up can standardize these via Prometheus/OTel client
// libraries if richer instrument types become necessary.
const (
	SessionRegistered  = "session_registered"
	JoinInitiated      = "join_initiated"
	CandidatesRelayed  = "candidates_relayed"
	ResponsesRelayed   = "responses_relayed"
	HostDrains         = "host_drains"
	ClientDrains       = "client_drains"
	MessagesDelivered  = "messages_delivered"
	AuthFailure        = "auth_failure"
	NameSpaceExhausted = "name_space_exhausted"
	RateLimited        = "rate_limited"
	StoreError         = "store_error"
)

// Metrics is a minimal, concurrency-safe counter registry. It keeps the
// broker observable without pulling a metrics SDK into a service whose
// entire surface is a handful of counters.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

// Inc increments the named counter. Safe on a nil receiver so callers
// can leave metrics unconfigured.
func (m *Metrics) Inc(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.m[name]++
	m.mu.Unlock()
}

// Add increments the named counter by n.
func (m *Metrics) Add(name string, n uint64) {
	if m == nil || n == 0 {
		return
	}
	m.mu.Lock()
	m.m[name] += n
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
