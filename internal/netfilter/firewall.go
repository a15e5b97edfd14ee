// Package netfilter maintains a kernel-level ban list for addresses that
// keep getting denied: a timed ip set plus one drop rule on the streaming
// ingress port, backed by nftables or iptables+ipset depending on what the
// host provides.
package netfilter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

const (
	NFT = "nft"
	IPT = "ipt"

	// BanSet is the name of the ip set holding banned source addresses.
	BanSet = "mediagate_ban"
)

type Firewall struct {
	port    int
	timeout time.Duration
	backend string
}

// New returns a Firewall dropping traffic to port from banned addresses,
// where each ban expires after timeout.
func New(port int, timeout time.Duration) *Firewall {
	return &Firewall{
		port:    port,
		timeout: timeout,
	}
}

// Setup detects the firewall backend and installs the ban set and drop rule.
func (f *Firewall) Setup() error {
	f.backend = detectFirewallBackend()
	switch f.backend {
	case NFT:
		return f.nftSetup()
	case IPT:
		return f.iptSetup()
	default:
		return fmt.Errorf("unsupported or no firewall backend")
	}
}

// Ban adds addr to the ban set. The kernel expires the entry on its own
// after the configured timeout.
func (f *Firewall) Ban(addr string) error {
	switch f.backend {
	case NFT:
		return f.nftBan(addr)
	case IPT:
		return f.iptBan(addr)
	default:
		return fmt.Errorf("firewall not set up")
	}
}

// Cleanup removes everything Setup installed. Safe to call on a firewall
// that never completed setup.
func (f *Firewall) Cleanup() error {
	switch f.backend {
	case NFT:
		return f.nftCleanup()
	case IPT:
		return f.iptCleanup()
	default:
		return nil
	}
}

func detectFirewallBackend() string {
	if isCommandAvailable("nft") {
		slog.Info("Detected nftables backend (nft command available)")
		return NFT
	}
	if isCommandAvailable("iptables") && isCommandAvailable("ipset") {
		slog.Info("Detected iptables backend (iptables and ipset commands available)")
		return IPT
	}
	slog.Warn("No firewall backend detected")
	return ""
}

func isCommandAvailable(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
