// ABOUTME: Tests for mDNS discovery
// ABOUTME: Tests manager configuration, TXT records and entry parsing
package discovery

import (
	"net"
	"strings"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestNewManager(t *testing.T) {
	mgr := NewManager(Config{ServiceName: "Studio", Port: 7000}, nil)
	defer mgr.Stop()

	if mgr.config.ServiceName != "Studio" {
		t.Errorf("expected Studio, got %s", mgr.config.ServiceName)
	}
	if mgr.Receivers() == nil {
		t.Error("expected receivers channel")
	}
}

func TestDefaultServiceName(t *testing.T) {
	mgr := NewManager(Config{Port: 7000}, nil)
	defer mgr.Stop()

	if !strings.HasSuffix(mgr.config.ServiceName, "-esprx") {
		t.Errorf("expected -esprx suffix, got %s", mgr.config.ServiceName)
	}
}

func TestTXT(t *testing.T) {
	mgr := NewManager(Config{Port: 7000, HTTPPort: 8080, SampleRate: 48000, SessionID: "abc"}, nil)
	defer mgr.Stop()

	got := strings.Join(mgr.TXT(), ",")
	want := "proto=esp32-pcm24,http=8080,rate=48000,session=abc"
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	bare := NewManager(Config{Port: 7000}, nil)
	defer bare.Stop()
	if txt := bare.TXT(); len(txt) != 1 {
		t.Errorf("expected only proto record, got %v", txt)
	}
}

func TestEntryToReceiver(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "studio-esprx._esprx._tcp.local.",
		AddrV4:     net.ParseIP("192.168.1.20"),
		Port:       7000,
		InfoFields: []string{"proto=esp32-pcm24", "http=8080", "session=s1", "junk"},
	}

	info := entryToReceiver(entry)
	if info == nil {
		t.Fatal("expected receiver info")
	}
	if info.Host != "192.168.1.20" || info.Port != 7000 {
		t.Errorf("expected 192.168.1.20:7000, got %s:%d", info.Host, info.Port)
	}
	if info.HTTPPort != 8080 || info.SessionID != "s1" {
		t.Errorf("expected http 8080 session s1, got %d %s", info.HTTPPort, info.SessionID)
	}
	if addr := info.StatusAddr(); addr != "192.168.1.20:8080" {
		t.Errorf("expected 192.168.1.20:8080, got %s", addr)
	}

	if entryToReceiver(&mdns.ServiceEntry{Name: "v6-only"}) != nil {
		t.Error("expected nil for entry without IPv4 address")
	}
}
