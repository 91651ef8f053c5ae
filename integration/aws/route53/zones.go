package route53

import (
	"fmt"
	"strings"
)

// ParseZones parses a hosted zone map written as
// "example.com:Z123,example.org:Z456".
func ParseZones(s string) (map[string]string, error) {
	zones := make(map[string]string)
	for entry := range strings.SplitSeq(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, id, ok := strings.Cut(entry, ":")
		name, id = normalizeDomain(name), strings.TrimSpace(id)
		if !ok || name == "" || id == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidZone, entry)
		}
		zones[name] = id
	}
	if len(zones) == 0 {
		return nil, ErrNoZones
	}
	return zones, nil
}

// ZoneID returns the hosted zone owning domain: the configured zone that is
// the longest suffix of domain. A leading wildcard label is ignored.
func (a *Authenticator) ZoneID(domain string) (string, bool) {
	name := normalizeDomain(domain)
	for name != "" {
		if id, ok := a.zones[name]; ok {
			return id, true
		}
		_, name, _ = strings.Cut(name, ".")
	}
	return "", false
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimPrefix(domain, "*.")
	return strings.TrimSuffix(domain, ".")
}

// recordName returns the fully qualified TXT record name for domain.
func recordName(domain string) string {
	return "_acme-challenge." + normalizeDomain(domain) + "."
}
