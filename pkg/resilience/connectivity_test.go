package resilience

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProber returns a configurable error and counts invocations.
type stubProber struct {
	mu     sync.Mutex
	err    error
	probes int
}

func (p *stubProber) Probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	return p.err
}

func (p *stubProber) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *stubProber) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes
}

func wifiInterfaces() ([]net.Interface, error) {
	return []net.Interface{
		{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
		{Name: "wlan0", Flags: net.FlagUp},
	}, nil
}

func noInterfaces() ([]net.Interface, error) {
	return []net.Interface{
		{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
		{Name: "eth0", Flags: 0}, // down
	}, nil
}

func newTestMonitor(prober Prober, lister InterfaceLister) *Monitor {
	return NewMonitor(MonitorConfig{
		Prober:        prober,
		ProbeInterval: 10 * time.Millisecond,
		ProbeTimeout:  50 * time.Millisecond,
		Interfaces:    lister,
	})
}

func TestMonitor_OnlineWhenProbeSucceeds(t *testing.T) {
	m := newTestMonitor(&stubProber{}, wifiInterfaces)
	defer m.Close()

	state := m.State()
	assert.True(t, state.Online)
	assert.Equal(t, TransportWifi, state.Transport)
	assert.True(t, m.Online())
}

func TestMonitor_OfflineWhenProbeFailsDespiteLink(t *testing.T) {
	// Associated to wifi but the probe cannot reach the internet.
	m := newTestMonitor(&stubProber{err: stderrors.New("no route to host")}, wifiInterfaces)
	defer m.Close()

	state := m.State()
	assert.False(t, state.Online)
	assert.Equal(t, TransportWifi, state.Transport)
}

func TestMonitor_OfflineWithoutUsableInterface(t *testing.T) {
	prober := &stubProber{}
	m := newTestMonitor(prober, noInterfaces)
	defer m.Close()

	state := m.State()
	assert.False(t, state.Online)
	assert.Equal(t, TransportNone, state.Transport)
	// No link means no point probing.
	assert.Equal(t, 0, prober.count())
}

func TestMonitor_SubscribeReceivesChanges(t *testing.T) {
	prober := &stubProber{err: stderrors.New("down")}
	m := newTestMonitor(prober, wifiInterfaces)
	defer m.Close()

	require.False(t, m.Online())

	ch, cancel := m.Subscribe()
	defer cancel()

	prober.setErr(nil)

	select {
	case state := <-ch:
		assert.True(t, state.Online)
		assert.Equal(t, TransportWifi, state.Transport)
	case <-time.After(time.Second):
		t.Fatal("no connectivity change received")
	}

	assert.True(t, m.Online())
}

func TestMonitor_UnsubscribeIsIdempotent(t *testing.T) {
	m := newTestMonitor(&stubProber{}, wifiInterfaces)
	defer m.Close()

	_, cancel := m.Subscribe()
	cancel()
	cancel() // must not panic or double-close
}

func TestMonitor_CloseIsIdempotent(t *testing.T) {
	m := newTestMonitor(&stubProber{}, wifiInterfaces)

	ch, _ := m.Subscribe()

	m.Close()
	m.Close() // safe to call again

	_, open := <-ch
	assert.False(t, open)
}

func TestHTTPProber(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer okServer.Close()

	prober := &HTTPProber{URL: okServer.URL, Client: okServer.Client()}
	assert.NoError(t, prober.Probe(context.Background()))

	failServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failServer.Close()

	prober = &HTTPProber{URL: failServer.URL, Client: failServer.Client()}
	err := prober.Probe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestTransportFromName(t *testing.T) {
	tests := []struct {
		name string
		want Transport
	}{
		{"wlan0", TransportWifi},
		{"wlp3s0", TransportWifi},
		{"eth0", TransportEthernet},
		{"en0", TransportEthernet},
		{"wwan0", TransportCellular},
		{"rmnet_data0", TransportCellular},
		{"ppp0", TransportCellular},
		{"tun0", TransportUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transportFromName(tt.name))
		})
	}
}

func TestTransportString(t *testing.T) {
	assert.Equal(t, "wifi", TransportWifi.String())
	assert.Equal(t, "cellular", TransportCellular.String())
	assert.Equal(t, "ethernet", TransportEthernet.String())
	assert.Equal(t, "none", TransportNone.String())
	assert.Equal(t, "unknown", TransportUnknown.String())
}
