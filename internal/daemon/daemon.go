// Package daemon prepares the process for long-running operation next to a
// streaming server.
package daemon

import (
	"log/slog"
	"os"
	"strings"

	"github.com/sunbk201/mediagate/internal/config"
)

// DaemonSetup applies process-level settings before the gate starts serving.
// On embedded systems the gate is shielded from the OOM killer so that a
// memory-hungry streaming server does not take the admission gate down with
// it.
func DaemonSetup(cfg *config.Config) error {
	if IsOpenWrt() {
		if err := SetOOMScoreAdj(-900); err != nil {
			slog.Warn("SetOOMScoreAdj", slog.Any("error", err))
		}
	}
	return nil
}

func IsOpenWrt() bool {
	if _, err := os.Stat("/etc/openwrt_release"); err == nil {
		return true
	}

	data, err := os.ReadFile("/etc/os-release")
	if err == nil && strings.Contains(string(data), "OpenWrt") {
		return true
	}

	return false
}
