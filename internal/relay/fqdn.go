package relay

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxFQDNLen  = 255
	maxLabelLen = 63
)

var (
	ErrEmptyFQDN   = errors.New("relay: empty fqdn")
	ErrInvalidFQDN = errors.New("relay: invalid fqdn")
)

// FQDN is a validated, lowercased domain name used as the lookup key for
// relay index requests. The zero value is invalid; construct via ParseFQDN.
type FQDN struct {
	name string
}

// ParseFQDN validates raw as a domain name and returns its canonical
// (lowercased, no trailing dot) form. Validation happens here, before any
// network I/O is attempted with the name.
func ParseFQDN(raw string) (FQDN, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.TrimSuffix(name, ".")
	if name == "" {
		return FQDN{}, ErrEmptyFQDN
	}
	if len(name) > maxFQDNLen {
		return FQDN{}, fmt.Errorf("%w: name exceeds %d octets", ErrInvalidFQDN, maxFQDNLen)
	}
	for _, label := range strings.Split(name, ".") {
		if err := checkLabel(label); err != nil {
			return FQDN{}, err
		}
	}
	return FQDN{name: name}, nil
}

func checkLabel(label string) error {
	if label == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidFQDN)
	}
	if len(label) > maxLabelLen {
		return fmt.Errorf("%w: label %q exceeds %d octets", ErrInvalidFQDN, label, maxLabelLen)
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return fmt.Errorf("%w: label %q has leading or trailing hyphen", ErrInvalidFQDN, label)
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return fmt.Errorf("%w: label %q has invalid character %q", ErrInvalidFQDN, label, c)
		}
	}
	return nil
}

// String returns the canonical name. Empty for the zero value.
func (f FQDN) String() string { return f.name }

// IsZero reports whether f was never parsed.
func (f FQDN) IsZero() bool { return f.name == "" }
