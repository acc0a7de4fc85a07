package client

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/danmuck/relayctl/internal/relay"
)

// Verifier checks one record's signature against its contents. The relay
// contract does not pin a scheme yet, so verification is pluggable.
type Verifier interface {
	Verify(rec relay.Record) error
}

// SHA256Verifier accepts a signature that is the SHA-256 digest of the
// record value, matching how the relay addresses stored objects.
type SHA256Verifier struct{}

func (SHA256Verifier) Verify(rec relay.Record) error {
	sum := sha256.Sum256(rec.Value)
	if !bytes.Equal(sum[:], rec.Sig) {
		return fmt.Errorf("%w: key=%q", ErrBadSignature, rec.Key)
	}
	return nil
}

// ValidateOptions tunes response validation.
type ValidateOptions struct {
	// AllowDuplicateKeys permits repeated record keys in one response.
	// Whether duplicates are legitimate relay behavior is undecided in the
	// protocol, so it is a knob rather than a hard rule.
	AllowDuplicateKeys bool

	// Verifier checks record signatures when present. Nil means
	// SHA256Verifier.
	Verifier Verifier
}

// ValidResponse wraps a record set that passed validation. Consumers can
// rely on it being well-formed.
type ValidResponse struct {
	Scope   string
	Records []relay.Record
}

// Validate checks a decoded response for fqdn before it reaches the caller.
// An empty record set with an OK status is a valid result, not an error.
func Validate(resp relay.Response, fqdn relay.FQDN, opts ValidateOptions) (ValidResponse, error) {
	if resp.Status != relay.StatusOK {
		return ValidResponse{}, &RelayRejectedError{Status: resp.Status}
	}
	if resp.Scope != "" && resp.Scope != fqdn.String() {
		return ValidResponse{}, fmt.Errorf("%w: got %q want %q", ErrScopeMismatch, resp.Scope, fqdn.String())
	}

	verifier := opts.Verifier
	if verifier == nil {
		verifier = SHA256Verifier{}
	}

	seen := make(map[string]struct{}, len(resp.Records))
	for _, rec := range resp.Records {
		if !opts.AllowDuplicateKeys {
			if _, dup := seen[rec.Key]; dup {
				return ValidResponse{}, fmt.Errorf("%w: key=%q", ErrDuplicateKey, rec.Key)
			}
			seen[rec.Key] = struct{}{}
		}
		if len(rec.Sig) > 0 {
			if err := verifier.Verify(rec); err != nil {
				return ValidResponse{}, err
			}
		}
	}

	return ValidResponse{Scope: resp.Scope, Records: resp.Records}, nil
}
