// Package hostname validates and canonicalizes the root domain given on the
// command line.
package hostname

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/1ikeadragon/subconverge/internal/domain"
)

// Canonical returns the lower-case ASCII form of a root domain. Schemes and
// paths are tolerated so that a pasted URL works. Public suffixes ("co.uk")
// are rejected because nothing below them is a single target.
func Canonical(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", &domain.OpError{
			Op:   "hostname.canonical",
			Kind: domain.KindMissingInput,
			Err:  domain.ErrMissingInput,
		}
	}

	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || u.Hostname() == "" {
			return "", invalid(input, fmt.Errorf("not a domain or URL"))
		}
		s = u.Hostname()
	}
	s = strings.TrimSuffix(strings.ToLower(s), ".")

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", invalid(input, err)
	}

	if _, err := publicsuffix.EffectiveTLDPlusOne(ascii); err != nil {
		return "", invalid(input, err)
	}
	return ascii, nil
}

// Apex returns the registrable domain (eTLD+1) of host.
func Apex(host string) (string, error) {
	apex, err := publicsuffix.EffectiveTLDPlusOne(strings.TrimSuffix(strings.ToLower(host), "."))
	if err != nil {
		return "", invalid(host, err)
	}
	return apex, nil
}

func invalid(input string, err error) error {
	return &domain.OpError{
		Op:   "hostname.canonical",
		Kind: domain.KindInvalidConfig,
		Path: input,
		Err:  err,
	}
}
