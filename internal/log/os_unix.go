//go:build unix

package log

import (
	"log/slog"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
)

// GetOSInfo collects host attributes logged once at startup. Knowing the
// kernel and machine matters when diagnosing why netfilter bans did not take
// effect on a given box.
func GetOSInfo() []any {
	attrs := []any{
		slog.String("GOOS", runtime.GOOS),
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("Go Version", runtime.Version()),
	}

	if hostname, err := os.Hostname(); err == nil {
		attrs = append(attrs, slog.String("hostname", hostname))
	}

	var uname unix.Utsname
	if err := unix.Uname(&uname); err == nil {
		field := func(b []byte) string {
			return strings.TrimSpace(unix.ByteSliceToString(b))
		}
		attrs = append(attrs,
			slog.String("sysname", field(uname.Sysname[:])),
			slog.String("nodename", field(uname.Nodename[:])),
			slog.String("release", field(uname.Release[:])),
			slog.String("version", field(uname.Version[:])),
			slog.String("machine", field(uname.Machine[:])),
		)
	}
	return attrs
}
