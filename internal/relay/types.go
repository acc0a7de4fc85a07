package relay

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var ErrInvalidAddress = errors.New("relay: invalid relay address")

// Address identifies one relay endpoint as host:port. It is resolved to a
// connection target at dial time, not at construction.
type Address struct {
	host string
	port string
}

// ParseAddress validates raw as a host:port pair.
func ParseAddress(raw string) (Address, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(raw))
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if host == "" {
		return Address{}, fmt.Errorf("%w: missing host", ErrInvalidAddress)
	}
	if port == "" {
		return Address{}, fmt.Errorf("%w: missing port", ErrInvalidAddress)
	}
	return Address{host: host, port: port}, nil
}

func (a Address) Host() string { return a.host }

func (a Address) String() string { return net.JoinHostPort(a.host, a.port) }

func (a Address) IsZero() bool { return a.host == "" && a.port == "" }

// Status codes carried in index responses. Zero means the relay served the
// request; any other value is a relay-side rejection code.
const StatusOK uint32 = 0

// Operation is a request kind. The set is closed; new kinds extend the wire
// contract with new message type codes.
type Operation uint32

const OpIndex Operation = 1

func (op Operation) String() string {
	switch op {
	case OpIndex:
		return "index"
	default:
		return fmt.Sprintf("operation(%d)", uint32(op))
	}
}

// Record is one relay-held entry for an FQDN. Key and Value are opaque to
// the protocol core; Sig, when present, covers Value.
type Record struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
	Sig   []byte `json:"sig,omitempty"`
}

// Clone returns a deep copy so callers can hold records past the response
// buffer's lifetime.
func (r Record) Clone() Record {
	out := Record{Key: r.Key}
	if r.Value != nil {
		out.Value = make([]byte, len(r.Value))
		copy(out.Value, r.Value)
	}
	if r.Sig != nil {
		out.Sig = make([]byte, len(r.Sig))
		copy(out.Sig, r.Sig)
	}
	return out
}

// Response is one decoded index response as received from the wire.
// MessageID echoes the request's correlation identifier; Scope, when the
// relay sends it, echoes the FQDN the record set belongs to.
type Response struct {
	MessageID uint64
	Status    uint32
	Scope     string
	Records   []Record
}
