package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/relayctl/internal/protocol/frame"
	"github.com/danmuck/relayctl/internal/relay"
)

func mustFQDN(t *testing.T, raw string) relay.FQDN {
	t.Helper()
	fqdn, err := relay.ParseFQDN(raw)
	if err != nil {
		t.Fatalf("parse fqdn %q: %v", raw, err)
	}
	return fqdn
}

func TestIndexRequestRoundTrip(t *testing.T) {
	buf, err := EncodeIndexRequest(42, mustFQDN(t, "example.test"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	f, err := frame.ReadFrame(bytes.NewReader(buf), frame.DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if f.Header.MessageID != 42 {
		t.Fatalf("message id mismatch: %d", f.Header.MessageID)
	}
	name, err := DecodeIndexRequest(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if name != "example.test" {
		t.Fatalf("unexpected fqdn: %q", name)
	}
}

func TestEncodeIndexRequestRejectsZeroFQDN(t *testing.T) {
	if _, err := EncodeIndexRequest(1, relay.FQDN{}); !errors.Is(err, ErrFQDNRequired) {
		t.Fatalf("expected ErrFQDNRequired, got %v", err)
	}
}

func TestEncodeRequestOperationDispatch(t *testing.T) {
	if _, err := EncodeRequest(1, relay.OpIndex, mustFQDN(t, "example.test")); err != nil {
		t.Fatalf("encode index op: %v", err)
	}
	if _, err := EncodeRequest(1, relay.Operation(99), mustFQDN(t, "example.test")); !errors.Is(err, ErrUnsupportedVariant) {
		t.Fatalf("expected ErrUnsupportedVariant, got %v", err)
	}
}

func TestIndexResponseRoundTrip(t *testing.T) {
	records := []relay.Record{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2"), Sig: []byte{0xde, 0xad}},
	}
	buf, err := EncodeIndexResponse(7, "example.test", relay.StatusOK, records)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	resp, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MessageID != 7 || resp.Status != relay.StatusOK {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Scope != "example.test" {
		t.Fatalf("scope not echoed: %q", resp.Scope)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(resp.Records))
	}
	if resp.Records[0].Key != "a" || string(resp.Records[0].Value) != "1" || resp.Records[0].Sig != nil {
		t.Fatalf("record 0 mismatch: %+v", resp.Records[0])
	}
	if resp.Records[1].Key != "b" || !bytes.Equal(resp.Records[1].Sig, []byte{0xde, 0xad}) {
		t.Fatalf("record 1 mismatch: %+v", resp.Records[1])
	}
}

func TestIndexResponseEmptyRecords(t *testing.T) {
	buf, err := EncodeIndexResponse(9, "", relay.StatusOK, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	resp, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Records) != 0 {
		t.Fatalf("expected empty record set, got %d", len(resp.Records))
	}
}

func TestErrorResponseDecodes(t *testing.T) {
	buf, err := EncodeErrorResponse(11, 403, "forbidden")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	resp, err := DecodeResponse(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MessageID != 11 || resp.Status != 403 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(resp.Records) != 0 {
		t.Fatalf("error frame should carry no records")
	}
}

func TestDecodeResponseTruncated(t *testing.T) {
	buf, err := EncodeIndexResponse(1, "example.test", relay.StatusOK, []relay.Record{{Key: "a", Value: []byte("1")}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	_, err = DecodeResponse(buf[:len(buf)-3])
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
	_, err = DecodeResponse(buf[:8])
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated for short header, got %v", err)
	}
}

func TestDecodeResponseUnknownMessageType(t *testing.T) {
	var raw bytes.Buffer
	err := frame.WriteFrame(&raw, frame.Frame{
		Header: frame.Header{MessageID: 1, MessageType: 99},
	}, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("write frame: %v", err)
	}
	_, err = DecodeResponse(raw.Bytes())
	if !errors.Is(err, ErrUnsupportedVariant) {
		t.Fatalf("expected ErrUnsupportedVariant, got %v", err)
	}
}

func TestDecodeResponseMalformedPayload(t *testing.T) {
	// A payload that frames correctly but holds a broken TLV stream.
	var raw bytes.Buffer
	err := frame.WriteFrame(&raw, frame.Frame{
		Header:  frame.Header{MessageID: 1, MessageType: 2, Flags: frame.FlagIsResponse},
		Payload: []byte{0x00, 0x02, 0x03},
	}, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("write frame: %v", err)
	}
	_, err = DecodeResponse(raw.Bytes())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
