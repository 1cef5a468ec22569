// Package gdm implements Plex "Good Day Mate" presence over UDP multicast:
// server discovery for the bridge, and client announcement so controllers
// can find the bridge.
package gdm

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	multicastIP         = "239.0.0.250"
	serverDiscoveryPort = 32414
	clientDiscoveryPort = 32412
	clientBroadcastPort = 32413
)

const searchPayload = "M-SEARCH * HTTP/1.0\r\n\r\n"

// Server is one discovered media server.
type Server struct {
	Address string
	Port    int
	Name    string
}

// Discover multicasts an M-SEARCH and waits for the first media server to
// answer. The context bounds the whole exchange.
func Discover(ctx context.Context, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	target := &net.UDPAddr{IP: net.ParseIP(multicastIP), Port: serverDiscoveryPort}
	if _, err := conn.WriteToUDP([]byte(searchPayload), target); err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	buf := make([]byte, 4096)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return nil, fmt.Errorf("gdm: no media server answered: %w", err)
		}

		fields := parseFields(string(buf[:n]))
		name := fields["name"]
		port, portErr := strconv.Atoi(fields["port"])
		if name == "" || portErr != nil {
			logger.Printf("gdm: ignoring malformed reply from %s", addr.IP)
			continue
		}

		logger.Printf("gdm: found server %q at %s:%d", name, addr.IP, port)
		return &Server{Address: addr.IP.String(), Port: port, Name: name}, nil
	}
}

// parseFields reads the header-style GDM payload into a lowercase-keyed map.
func parseFields(payload string) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(payload))
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		fields[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return fields
}
