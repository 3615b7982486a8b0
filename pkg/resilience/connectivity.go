package resilience

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fleetbook/resilience/pkg/logging"
)

// Transport identifies the kind of network path the device is using
type Transport int

const (
	TransportUnknown Transport = iota
	TransportWifi
	TransportCellular
	TransportEthernet
	TransportNone
)

func (t Transport) String() string {
	switch t {
	case TransportWifi:
		return "wifi"
	case TransportCellular:
		return "cellular"
	case TransportEthernet:
		return "ethernet"
	case TransportNone:
		return "none"
	default:
		return "unknown"
	}
}

// ConnState is a snapshot of device reachability
type ConnState struct {
	Online    bool      `json:"online"`
	Transport Transport `json:"-"`
}

// Checker is the synchronous connectivity view consumed by the executor.
// Keeping it an interface lets callers substitute a stub or a
// platform-specific source.
type Checker interface {
	Online() bool
}

// Prober validates that the current network path has general internet
// capability. Link-layer presence alone is not enough; a wifi association
// with no internet must still report offline.
type Prober interface {
	Probe(ctx context.Context) error
}

// HTTPProber probes a well-known endpoint expected to answer with a
// 2xx/3xx status
type HTTPProber struct {
	URL    string
	Client *http.Client
}

func (p *HTTPProber) Probe(ctx context.Context) error {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

// InterfaceLister enumerates network interfaces; swapped out in tests
type InterfaceLister func() ([]net.Interface, error)

// MonitorConfig holds connectivity monitor configuration
type MonitorConfig struct {
	// Prober overrides the default HTTP prober built from ProbeURL
	Prober Prober
	// ProbeURL is the endpoint used to validate internet capability
	ProbeURL string
	// ProbeInterval is how often reachability is re-evaluated
	ProbeInterval time.Duration
	// ProbeTimeout bounds a single probe
	ProbeTimeout time.Duration
	// Interfaces overrides interface enumeration
	Interfaces InterfaceLister
}

// DefaultMonitorConfig returns a default configuration
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		ProbeURL:      "https://clients3.google.com/generate_204",
		ProbeInterval: 15 * time.Second,
		ProbeTimeout:  5 * time.Second,
	}
}

// Monitor maintains a live view of device network reachability. It keeps an
// always-current snapshot readable without blocking and a subscribable
// stream of changes. One Monitor per process is expected; it lives until
// Close, which is safe to call more than once or never.
type Monitor struct {
	prober     Prober
	interval   time.Duration
	timeout    time.Duration
	interfaces InterfaceLister
	logger     *logging.Logger

	mutex       sync.RWMutex
	state       ConnState
	subscribers map[int]chan ConnState
	nextSubID   int

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewMonitor creates a connectivity monitor, performs an initial
// reachability check, and starts the background probe loop.
func NewMonitor(config MonitorConfig) *Monitor {
	if config.ProbeInterval <= 0 {
		config.ProbeInterval = 15 * time.Second
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = 5 * time.Second
	}
	if config.Prober == nil {
		url := config.ProbeURL
		if url == "" {
			url = DefaultMonitorConfig().ProbeURL
		}
		config.Prober = &HTTPProber{
			URL:    url,
			Client: &http.Client{Timeout: config.ProbeTimeout},
		}
	}
	if config.Interfaces == nil {
		config.Interfaces = net.Interfaces
	}

	m := &Monitor{
		prober:      config.Prober,
		interval:    config.ProbeInterval,
		timeout:     config.ProbeTimeout,
		interfaces:  config.Interfaces,
		logger:      logging.GetLogger(),
		subscribers: make(map[int]chan ConnState),
		done:        make(chan struct{}),
	}

	m.refresh()

	m.wg.Add(1)
	go m.loop()

	return m
}

// State returns the current reachability snapshot
func (m *Monitor) State() ConnState {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.state
}

// Online reports whether the device has a validated network path
func (m *Monitor) Online() bool {
	return m.State().Online
}

// Subscribe returns a channel receiving reachability changes and a cancel
// function that is safe to call more than once. Slow consumers miss
// intermediate states rather than blocking the monitor.
func (m *Monitor) Subscribe() (<-chan ConnState, func()) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	id := m.nextSubID
	m.nextSubID++

	ch := make(chan ConnState, 1)
	m.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			if sub, ok := m.subscribers[id]; ok {
				delete(m.subscribers, id)
				close(sub)
			}
		})
	}

	return ch, cancel
}

// Close stops the probe loop and closes all subscriber channels. Idempotent.
func (m *Monitor) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()

		m.mutex.Lock()
		defer m.mutex.Unlock()
		for id, ch := range m.subscribers {
			delete(m.subscribers, id)
			close(ch)
		}
	})
}

func (m *Monitor) loop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.refresh()
		}
	}
}

// refresh re-evaluates reachability and notifies subscribers on change
func (m *Monitor) refresh() {
	transport := m.detectTransport()

	online := false
	if transport != TransportNone {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		err := m.prober.Probe(ctx)
		cancel()
		online = err == nil
		if err != nil {
			m.logger.Debug("Connectivity probe failed",
				"transport", transport.String(),
				"error", err.Error(),
			)
		}
	}

	next := ConnState{Online: online, Transport: transport}

	m.mutex.Lock()
	changed := next != m.state
	m.state = next
	if changed {
		// Non-blocking sends, so holding the mutex here is fine and keeps
		// an unsubscribe from closing a channel mid-notify.
		for _, ch := range m.subscribers {
			select {
			case ch <- next:
			default:
				// Drop rather than block; the subscriber can read State().
			}
		}
	}
	m.mutex.Unlock()

	if changed {
		m.logger.Info("Connectivity changed",
			"online", next.Online,
			"transport", next.Transport.String(),
		)
	}
}

// detectTransport picks the transport of the first usable interface
func (m *Monitor) detectTransport() Transport {
	ifaces, err := m.interfaces()
	if err != nil {
		m.logger.Warn("Failed to enumerate network interfaces", "error", err.Error())
		return TransportUnknown
	}

	best := TransportNone
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		t := transportFromName(iface.Name)
		if best == TransportNone || rankTransport(t) > rankTransport(best) {
			best = t
		}
	}
	return best
}

func transportFromName(name string) Transport {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "wl"), strings.HasPrefix(name, "wifi"), strings.HasPrefix(name, "ath"):
		return TransportWifi
	case strings.HasPrefix(name, "eth"), strings.HasPrefix(name, "en"):
		return TransportEthernet
	case strings.HasPrefix(name, "wwan"), strings.HasPrefix(name, "rmnet"), strings.HasPrefix(name, "ppp"), strings.HasPrefix(name, "cell"):
		return TransportCellular
	default:
		return TransportUnknown
	}
}

// rankTransport orders transports by preference for reporting when several
// interfaces are up at once
func rankTransport(t Transport) int {
	switch t {
	case TransportEthernet:
		return 4
	case TransportWifi:
		return 3
	case TransportCellular:
		return 2
	case TransportUnknown:
		return 1
	default:
		return 0
	}
}
