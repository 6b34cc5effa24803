// Package domains validates, imports and matches approved domain names.
package domains

import (
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
)

// Normalize trims, lowercases and validates a domain name. URLs, ports and
// IP literals are rejected.
func Normalize(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("empty domain")
	}
	if strings.Contains(trimmed, "://") || strings.ContainsAny(trimmed, "/: \t") {
		return "", fmt.Errorf("invalid hostname")
	}
	if ip := net.ParseIP(trimmed); ip != nil {
		return "", fmt.Errorf("ip literals are not domains")
	}
	lower := strings.ToLower(strings.TrimSuffix(trimmed, "."))
	if lower == "" {
		return "", fmt.Errorf("empty domain")
	}
	if _, ok := dns.IsDomainName(lower); !ok {
		return "", fmt.Errorf("invalid domain")
	}
	return lower, nil
}

// Allowed applies the proxy's allow rule: a leading "www." is ignored and
// the host passes when any approved domain occurs inside it.
func Allowed(approved []string, host string) bool {
	normalized := strings.ToLower(strings.TrimSpace(host))
	normalized = strings.TrimPrefix(normalized, "www.")
	if normalized == "" {
		return false
	}
	for _, domain := range approved {
		if domain != "" && strings.Contains(normalized, domain) {
			return true
		}
	}
	return false
}
