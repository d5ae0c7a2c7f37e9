package normalize

import (
	"regexp"
	"strings"

	"github.com/mikey/forward-unwrap/internal/core"
)

var (
	mailtoRe       = regexp.MustCompile(`<mailto:[^>\s]+>?`)
	nameAddrRe     = regexp.MustCompile(`^(?:"([^"]+)"|([^<]+?))\s*<([^>]+)>$`)
	plainEmailRe   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@,]+$`)
	duplicateRe    = regexp.MustCompile(`^\s*([^\s\[\]<>]+@[^\s\[\]<>]+)\s*\[\s*(?:mailto:)?([^\s\[\]<>]+@[^\s\[\]<>]+)\s*\]\s*$`)
	embeddedMailRe = regexp.MustCompile(`([^\s<>\[\]"'(),;:]+@[^\s<>\[\]"'(),;:]+\.[^\s<>\[\]"'(),;:]+)`)
	bracketsRe     = regexp.MustCompile(`[<>\[\]]`)
	nameEdgeRe     = regexp.MustCompile(`^[\s*_>"']+|[\s*_>"']+$`)
	addrEdgeRe     = regexp.MustCompile(`^[\s*_]+|[\s*_]+$`)
)

// Address cleans a ragged sender or recipient and returns nil when nothing usable remains.
// Applying it to its own output returns an equal value.
func Address(in *core.Address) *core.Address {
	if in == nil {
		return nil
	}
	out := normalizeAddress(in.Name, in.Address)
	if out.IsEmpty() {
		return nil
	}
	return &out
}

// AddressString normalizes a raw header value such as `"Name" <addr>`
func AddressString(raw string) *core.Address {
	return Address(&core.Address{Address: raw})
}

// IsEmail reports whether s looks like a bare email address
func IsEmail(s string) bool {
	return plainEmailRe.MatchString(strings.TrimSpace(s))
}

// Domain returns the lowercased domain part of an address
func Domain(addr string) string {
	i := strings.LastIndex(addr, "@")
	if i < 0 || i == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(addr[i+1:]))
}

func normalizeAddress(name, addr string) core.Address {
	addr = strings.TrimSpace(addr)
	if addr != "" {
		addr = strings.TrimSpace(mailtoRe.ReplaceAllString(addr, ""))

		if m := nameAddrRe.FindStringSubmatch(addr); m != nil {
			email := strings.TrimSpace(m[3])
			if IsEmail(email) {
				display := strings.TrimSpace(m[1])
				if display == "" {
					display = strings.TrimSpace(m[2])
				}
				if display == "" {
					display = name
				}
				return normalizeAddress(display, email)
			}
		}

		if m := duplicateRe.FindStringSubmatch(addr); m != nil && strings.EqualFold(m[1], m[2]) {
			addr = m[1]
		}
		addr = strings.TrimSpace(bracketsRe.ReplaceAllString(addr, ""))
	}

	if addr == "" && name != "" {
		if m := duplicateRe.FindStringSubmatch(name); m != nil && strings.EqualFold(m[1], m[2]) {
			return core.Address{Address: m[1]}
		}
		if m := embeddedMailRe.FindStringSubmatch(name); m != nil {
			return normalizeAddress("", m[1])
		}
	}

	name = bracketsRe.ReplaceAllString(name, "")
	name = nameEdgeRe.ReplaceAllString(name, "")
	addr = addrEdgeRe.ReplaceAllString(addr, "")

	if strings.EqualFold(name, addr) {
		name = ""
	}
	return core.Address{Name: name, Address: addr}
}
