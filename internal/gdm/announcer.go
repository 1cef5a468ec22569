package gdm

import (
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// Identity describes the bridge in announcement payloads.
type Identity struct {
	MachineID string
	Name      string
	Port      int
	Product   string
	Version   string
}

// Announcer makes the bridge discoverable: it answers controller M-SEARCH
// probes on the client discovery port and broadcasts a HELLO on a fixed
// interval. Single-iteration failures are logged and retried next tick.
type Announcer struct {
	identity Identity
	interval time.Duration
	logger   *log.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewAnnouncer(identity Identity, interval time.Duration, logger *log.Logger) *Announcer {
	if logger == nil {
		logger = log.Default()
	}
	return &Announcer{
		identity: identity,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the responder and the HELLO loop.
func (a *Announcer) Start() {
	a.wg.Add(2)
	go a.respondLoop()
	go a.helloLoop()
}

// Stop halts both loops.
func (a *Announcer) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	a.wg.Wait()
}

// payload renders the bridge's announcement document.
func (a *Announcer) payload(status string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\r\n", status)
	fmt.Fprintf(&b, "Content-Type: plex/media-player\r\n")
	fmt.Fprintf(&b, "Name: %s\r\n", a.identity.Name)
	fmt.Fprintf(&b, "Port: %d\r\n", a.identity.Port)
	fmt.Fprintf(&b, "Product: %s\r\n", a.identity.Product)
	fmt.Fprintf(&b, "Protocol: plex\r\n")
	fmt.Fprintf(&b, "Protocol-Version: 1\r\n")
	fmt.Fprintf(&b, "Protocol-Capabilities: timeline,playback,navigation\r\n")
	fmt.Fprintf(&b, "Resource-Identifier: %s\r\n", a.identity.MachineID)
	fmt.Fprintf(&b, "Device-Class: stb\r\n")
	fmt.Fprintf(&b, "Version: %s\r\n", a.identity.Version)
	return b.String()
}

// respondLoop answers M-SEARCH probes addressed to the client discovery
// multicast group.
func (a *Announcer) respondLoop() {
	defer a.wg.Done()

	group := &net.UDPAddr{IP: net.ParseIP(multicastIP), Port: clientDiscoveryPort}
	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		a.logger.Printf("gdm: cannot join discovery group: %v", err)
		return
	}
	defer conn.Close()

	reply := []byte(a.payload("HTTP/1.0 200 OK"))
	buf := make([]byte, 1024)
	for {
		select {
		case <-a.stopCh:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		if !strings.HasPrefix(string(buf[:n]), "M-SEARCH") {
			continue
		}
		if _, err := conn.WriteToUDP(reply, addr); err != nil {
			a.logger.Printf("gdm: reply to %s failed: %v", addr, err)
		}
	}
}

// helloLoop broadcasts presence on the client broadcast port.
func (a *Announcer) helloLoop() {
	defer a.wg.Done()

	target := &net.UDPAddr{IP: net.ParseIP(multicastIP), Port: clientBroadcastPort}
	hello := []byte(a.payload("HELLO * HTTP/1.0"))

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			conn, err := net.DialUDP("udp4", nil, target)
			if err != nil {
				a.logger.Printf("gdm: hello failed: %v", err)
				continue
			}
			if _, err := conn.Write(hello); err != nil {
				a.logger.Printf("gdm: hello failed: %v", err)
			}
			conn.Close()
		case <-a.stopCh:
			return
		}
	}
}
