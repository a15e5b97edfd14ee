package security

import (
	"encoding/binary"
	"net"
	"strconv"
	"strings"
)

// Matches reports whether addr matches the rule target. A target is either
// the literal "all", an address compared byte-for-byte, or an
// "address/mask" specification where mask is a prefix length ("/24") or a
// dotted-quad mask ("/255.255.255.0"). CIDR matching requires an explicit
// mask; a bare non-equal address never matches.
func Matches(addr, target string) bool {
	if target == "all" || target == addr {
		return true
	}

	literal, mask, ok := strings.Cut(target, "/")
	if !ok {
		return false
	}

	network, ok := parseIPv4(literal)
	if !ok {
		return false
	}
	m, ok := parseMask(mask)
	if !ok {
		return false
	}
	a, ok := parseIPv4(addr)
	if !ok {
		return false
	}

	return a&m == network&m
}

// parseIPv4 converts a dotted-quad address to its 32-bit value.
func parseIPv4(s string) (uint32, bool) {
	if strings.Count(s, ".") != 3 {
		return 0, false
	}
	ip4 := net.ParseIP(s).To4()
	if ip4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(ip4), true
}

// parseMask accepts a prefix length between 1 and 32 or a dotted-quad mask.
func parseMask(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ".") {
		return parseIPv4(s)
	}
	bits, err := strconv.Atoi(s)
	if err != nil || bits < 1 || bits > 32 {
		return 0, false
	}
	return binary.BigEndian.Uint32(net.CIDRMask(bits, 32)), true
}
