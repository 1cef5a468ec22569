// Package netutil holds the bridge's local-address selection heuristic.
package netutil

import (
	"fmt"
	"net"
	"os"
)

// LANAddress picks the address the bridge should hand to remote clients,
// falling back to whatever the hostname resolves to when no interface
// qualifies.
func LANAddress() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err == nil {
		if selected, err := SelectLANAddress(addrs); err == nil {
			return selected, nil
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	resolved, err := net.LookupIP(hostname)
	if err != nil || len(resolved) == 0 {
		return "", fmt.Errorf("no usable LAN address found")
	}
	return resolved[0].String(), nil
}

// SelectLANAddress implements the selection order: the first site-local
// non-loopback address wins, else the first non-loopback address, else an
// error. Split out as a pure function so the ordering is testable.
func SelectLANAddress(addrs []net.Addr) (string, error) {
	var candidate net.IP

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP
		if ip.IsLoopback() {
			continue
		}
		if ip.IsPrivate() {
			return ip.String(), nil
		}
		if candidate == nil {
			candidate = ip
		}
	}

	if candidate != nil {
		return candidate.String(), nil
	}
	return "", fmt.Errorf("no usable LAN address found")
}
