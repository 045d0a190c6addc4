// ABOUTME: mDNS service discovery for esprx receivers
// ABOUTME: Advertises the sender port and browses for receivers from the watch command
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service type a receiver advertises
const ServiceType = "_esprx._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int // sender TCP port
	HTTPPort    int // status API port, 0 when disabled
	SessionID   string
	SampleRate  int
}

// Manager handles mDNS operations
type Manager struct {
	config    Config
	log       *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	receivers chan *ReceiverInfo
}

// ReceiverInfo describes a discovered receiver
type ReceiverInfo struct {
	Name      string
	Host      string
	Port      int
	HTTPPort  int
	SessionID string
}

// StatusAddr returns host:port of the receiver's status API
func (r *ReceiverInfo) StatusAddr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.HTTPPort))
}

// NewManager creates a discovery manager
func NewManager(config Config, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = slog.Default()
	}
	if config.ServiceName == "" {
		config.ServiceName = DefaultServiceName()
	}

	return &Manager{
		config:    config,
		log:       logger.With("component", "discovery"),
		ctx:       ctx,
		cancel:    cancel,
		receivers: make(chan *ReceiverInfo, 10),
	}
}

// DefaultServiceName is the hostname with an esprx suffix
func DefaultServiceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "receiver"
	}
	return host + "-esprx"
}

// TXT returns the TXT records advertised with the service
func (m *Manager) TXT() []string {
	txt := []string{"proto=esp32-pcm24"}
	if m.config.HTTPPort > 0 {
		txt = append(txt, fmt.Sprintf("http=%d", m.config.HTTPPort))
	}
	if m.config.SampleRate > 0 {
		txt = append(txt, fmt.Sprintf("rate=%d", m.config.SampleRate))
	}
	if m.config.SessionID != "" {
		txt = append(txt, "session="+m.config.SessionID)
	}
	return txt
}

// Advertise advertises this receiver via mDNS until Stop
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.TXT(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.log.Info("Advertising mDNS service", "name", m.config.ServiceName, "port", m.config.Port, "type", ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for receivers until Stop
func (m *Manager) Browse() {
	go m.browseLoop()
}

// browseLoop continuously browses for receivers
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)

		go func() {
			for entry := range entries {
				info := entryToReceiver(entry)
				if info == nil {
					continue
				}
				m.log.Info("Discovered receiver", "name", info.Name, "host", info.Host, "port", info.Port)

				select {
				case m.receivers <- info:
				case <-m.ctx.Done():
					return
				}
			}
		}()

		params := &mdns.QueryParam{
			Service:             ServiceType,
			Domain:              "local",
			Timeout:             3 * time.Second,
			Entries:             entries,
			DisableIPv6:         true,
			WantUnicastResponse: false,
		}

		if err := mdns.Query(params); err != nil {
			m.log.Debug("mDNS query failed", "error", err)
		}
		close(entries)
	}
}

func entryToReceiver(entry *mdns.ServiceEntry) *ReceiverInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}
	info := &ReceiverInfo{
		Name: entry.Name,
		Host: entry.AddrV4.String(),
		Port: entry.Port,
	}
	for _, f := range entry.InfoFields {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		switch key {
		case "http":
			info.HTTPPort, _ = strconv.Atoi(value)
		case "session":
			info.SessionID = value
		}
	}
	return info
}

// Receivers returns the channel of discovered receivers
func (m *Manager) Receivers() <-chan *ReceiverInfo {
	return m.receivers
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
