package client

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/danmuck/relayctl/internal/relay"
	"github.com/danmuck/relayctl/internal/testutil/testlog"
)

func mustFQDN(t *testing.T, raw string) relay.FQDN {
	t.Helper()
	fqdn, err := relay.ParseFQDN(raw)
	if err != nil {
		t.Fatalf("parse fqdn %q: %v", raw, err)
	}
	return fqdn
}

func signed(key, value string) relay.Record {
	sum := sha256.Sum256([]byte(value))
	return relay.Record{Key: key, Value: []byte(value), Sig: sum[:]}
}

func TestValidateAcceptsWellFormedResponse(t *testing.T) {
	testlog.Start(t)
	fqdn := mustFQDN(t, "example.org")
	resp := relay.Response{
		Status: relay.StatusOK,
		Scope:  "example.org",
		Records: []relay.Record{
			signed("a", "1"),
			{Key: "b", Value: []byte("2")},
		},
	}
	valid, err := Validate(resp, fqdn, ValidateOptions{})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if valid.Scope != "example.org" || len(valid.Records) != 2 {
		t.Fatalf("unexpected valid response: %+v", valid)
	}
}

func TestValidateEmptySetIsValid(t *testing.T) {
	fqdn := mustFQDN(t, "example.org")
	valid, err := Validate(relay.Response{Status: relay.StatusOK}, fqdn, ValidateOptions{})
	if err != nil {
		t.Fatalf("empty ok response should validate: %v", err)
	}
	if len(valid.Records) != 0 {
		t.Fatalf("expected no records, got %d", len(valid.Records))
	}
}

func TestValidateRejectedStatus(t *testing.T) {
	fqdn := mustFQDN(t, "example.org")
	_, err := Validate(relay.Response{Status: 403}, fqdn, ValidateOptions{})
	var rejected *RelayRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RelayRejectedError, got %v", err)
	}
	if rejected.Status != 403 {
		t.Fatalf("status = %d, want 403", rejected.Status)
	}
}

func TestValidateScopeMismatch(t *testing.T) {
	fqdn := mustFQDN(t, "example.org")
	resp := relay.Response{Status: relay.StatusOK, Scope: "other.example.org"}
	if _, err := Validate(resp, fqdn, ValidateOptions{}); !errors.Is(err, ErrScopeMismatch) {
		t.Fatalf("expected ErrScopeMismatch, got %v", err)
	}

	// A relay that omits the scope echo is still acceptable.
	resp.Scope = ""
	if _, err := Validate(resp, fqdn, ValidateOptions{}); err != nil {
		t.Fatalf("empty scope should pass: %v", err)
	}
}

func TestValidateDuplicateKeys(t *testing.T) {
	fqdn := mustFQDN(t, "example.org")
	resp := relay.Response{
		Status: relay.StatusOK,
		Records: []relay.Record{
			{Key: "a", Value: []byte("1")},
			{Key: "a", Value: []byte("2")},
		},
	}
	if _, err := Validate(resp, fqdn, ValidateOptions{}); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	if _, err := Validate(resp, fqdn, ValidateOptions{AllowDuplicateKeys: true}); err != nil {
		t.Fatalf("duplicates should pass when allowed: %v", err)
	}
}

func TestValidateBadSignature(t *testing.T) {
	fqdn := mustFQDN(t, "example.org")
	resp := relay.Response{
		Status: relay.StatusOK,
		Records: []relay.Record{
			{Key: "a", Value: []byte("1"), Sig: []byte("not a digest")},
		},
	}
	if _, err := Validate(resp, fqdn, ValidateOptions{}); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestValidateUnsignedRecordSkipsVerification(t *testing.T) {
	fqdn := mustFQDN(t, "example.org")
	resp := relay.Response{
		Status:  relay.StatusOK,
		Records: []relay.Record{{Key: "a", Value: []byte("1")}},
	}
	if _, err := Validate(resp, fqdn, ValidateOptions{}); err != nil {
		t.Fatalf("unsigned record should pass: %v", err)
	}
}

type rejectAllVerifier struct{}

func (rejectAllVerifier) Verify(rec relay.Record) error {
	return errors.New("always rejects")
}

func TestValidateCustomVerifier(t *testing.T) {
	fqdn := mustFQDN(t, "example.org")
	resp := relay.Response{
		Status:  relay.StatusOK,
		Records: []relay.Record{{Key: "a", Value: []byte("1"), Sig: []byte("x")}},
	}
	if _, err := Validate(resp, fqdn, ValidateOptions{Verifier: rejectAllVerifier{}}); err == nil {
		t.Fatal("custom verifier was not consulted")
	}
}
