// Package origin decides whether a browser Origin header belongs to a
// registered domain. The check is suffix-anchored on the parsed URL host;
// plain substring containment is deliberately avoided because it accepts
// hosts like notvictim.com.attacker.com.
package origin

import (
	"net/url"
	"strings"
)

// Matches reports whether origin (a full scheme://host URL as sent in an
// Origin header) belongs to registeredDomain (a bare hostname, optionally
// prefixed with www.). It never returns an error; any malformed input is a
// non-match.
//
// Accepted hosts, after lower-casing both sides and stripping a leading
// "www." from the registered domain:
//
//  1. the domain itself, or www.<domain>
//  2. a direct subdomain <label>.<domain>, where label contains no further
//     dot and does not itself contain the domain. This rejects nested
//     spoofing hosts such as attacker.com.victim.com.
func Matches(origin, registeredDomain string) bool {
	origin = strings.TrimSpace(origin)
	registeredDomain = strings.TrimSpace(registeredDomain)
	if origin == "" || registeredDomain == "" {
		return false
	}

	// Origin headers always carry a scheme; anything else (ftp://, raw
	// hostnames, garbage) is rejected outright.
	lowered := strings.ToLower(origin)
	if !strings.HasPrefix(lowered, "http://") && !strings.HasPrefix(lowered, "https://") {
		return false
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	domain := strings.TrimPrefix(strings.ToLower(registeredDomain), "www.")
	if domain == "" {
		return false
	}

	if host == domain || host == "www."+domain {
		return true
	}

	if strings.HasSuffix(host, "."+domain) {
		label := host[:len(host)-len(domain)-1]
		if label != "" && !strings.Contains(label, ".") && !strings.Contains(label, domain) {
			return true
		}
	}

	return false
}
