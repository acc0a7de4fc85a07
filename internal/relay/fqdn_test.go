package relay

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFQDNCanonicalizes(t *testing.T) {
	got, err := ParseFQDN("  Example.TEST. ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got.String() != "example.test" {
		t.Fatalf("unexpected canonical form: %q", got.String())
	}
	if got.IsZero() {
		t.Fatalf("parsed fqdn reported zero")
	}
}

func TestParseFQDNRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"only dot", "."},
		{"empty label", "a..b"},
		{"leading hyphen", "-bad.test"},
		{"trailing hyphen", "bad-.test"},
		{"bad charset", "exa_mple.test"},
		{"space inside", "exa mple.test"},
		{"label too long", strings.Repeat("a", 64) + ".test"},
		{"name too long", strings.Repeat("abcdefgh.", 32) + "test"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseFQDN(tc.raw); err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}

func TestParseFQDNErrorKinds(t *testing.T) {
	if _, err := ParseFQDN(""); !errors.Is(err, ErrEmptyFQDN) {
		t.Fatalf("expected ErrEmptyFQDN, got %v", err)
	}
	if _, err := ParseFQDN("bad_label.test"); !errors.Is(err, ErrInvalidFQDN) {
		t.Fatalf("expected ErrInvalidFQDN, got %v", err)
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("relay.example.test:7420")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr.String() != "relay.example.test:7420" {
		t.Fatalf("unexpected address: %q", addr.String())
	}
	if addr.Host() != "relay.example.test" {
		t.Fatalf("unexpected host: %q", addr.Host())
	}
	if _, err := ParseAddress("no-port"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if _, err := ParseAddress(":7420"); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress for missing host, got %v", err)
	}
}

func TestRecordClone(t *testing.T) {
	r := Record{Key: "a", Value: []byte("1"), Sig: []byte{0xff}}
	c := r.Clone()
	c.Value[0] = 'x'
	c.Sig[0] = 0
	if r.Value[0] != '1' || r.Sig[0] != 0xff {
		t.Fatalf("clone aliased original buffers")
	}
}
