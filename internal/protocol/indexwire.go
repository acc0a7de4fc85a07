package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/danmuck/relayctl/internal/protocol/frame"
	"github.com/danmuck/relayctl/internal/protocol/schema"
	"github.com/danmuck/relayctl/internal/protocol/tlv"
	"github.com/danmuck/relayctl/internal/relay"
)

// EncodeRequest builds one request frame for the given operation. Only
// relay.OpIndex is part of the wire contract today.
func EncodeRequest(messageID uint64, op relay.Operation, fqdn relay.FQDN) ([]byte, error) {
	switch op {
	case relay.OpIndex:
		return EncodeIndexRequest(messageID, fqdn)
	default:
		return nil, fmt.Errorf("%w: operation=%d", ErrUnsupportedVariant, op)
	}
}

// EncodeIndexRequest builds one index.request frame for fqdn. The message ID
// is the caller-chosen correlation identifier; the relay echoes it in its
// response. The FQDN must already be validated.
func EncodeIndexRequest(messageID uint64, fqdn relay.FQDN) ([]byte, error) {
	if fqdn.IsZero() {
		return nil, ErrFQDNRequired
	}
	fields := []tlv.Field{tlv.String(schema.FieldFQDN, fqdn.String())}
	if err := schema.Validate(schema.MsgIndexRequest, fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return writeFrame(frame.Header{
		MessageID:   messageID,
		MessageType: schema.MsgIndexRequest,
	}, fields)
}

// DecodeIndexRequest parses one index.request frame and returns the
// requested name. Used by the relay side of the contract.
func DecodeIndexRequest(f frame.Frame) (string, error) {
	if f.Header.MessageType != schema.MsgIndexRequest {
		return "", fmt.Errorf("%w: message_type=%d", ErrUnsupportedVariant, f.Header.MessageType)
	}
	fields, err := decodeFields(f.Payload)
	if err != nil {
		return "", err
	}
	if err := schema.Validate(schema.MsgIndexRequest, fields); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	field, _ := tlv.GetField(fields, schema.FieldFQDN)
	return string(field.Value), nil
}

// EncodeIndexResponse builds one index.response frame carrying status, the
// scope FQDN the record set belongs to, and zero or more records.
func EncodeIndexResponse(messageID uint64, scope string, status uint32, records []relay.Record) ([]byte, error) {
	fields := []tlv.Field{tlv.U32(schema.FieldStatus, status)}
	if scope != "" {
		fields = append(fields, tlv.String(schema.FieldFQDN, scope))
	}
	for _, rec := range records {
		group, err := encodeRecord(rec)
		if err != nil {
			return nil, err
		}
		fields = append(fields, tlv.Field{ID: schema.FieldRecord, Type: tlv.TypeBytes, Value: group})
	}
	return writeFrame(frame.Header{
		MessageID:   messageID,
		MessageType: schema.MsgIndexResponse,
		Flags:       frame.FlagIsResponse,
	}, fields)
}

// EncodeErrorResponse builds one error frame with a nonzero status and a
// human-readable reason.
func EncodeErrorResponse(messageID uint64, status uint32, reason string) ([]byte, error) {
	fields := []tlv.Field{
		tlv.U32(schema.FieldStatus, status),
		tlv.String(schema.FieldErrorMessage, reason),
	}
	return writeFrame(frame.Header{
		MessageID:   messageID,
		MessageType: schema.MsgError,
		Flags:       frame.FlagIsResponse | frame.FlagIsError,
	}, fields)
}

// DecodeResponse parses one complete response frame from buf. Both
// index.response and error frames decode into a relay.Response; an error
// frame yields its status with no records.
func DecodeResponse(buf []byte) (relay.Response, error) {
	f, err := frame.ReadFrame(bytes.NewReader(buf), frame.DefaultLimits())
	if err != nil {
		return relay.Response{}, classifyFrameErr(err)
	}
	return DecodeResponseFrame(f)
}

// DecodeResponseFrame decodes an already-read frame.
func DecodeResponseFrame(f frame.Frame) (relay.Response, error) {
	switch f.Header.MessageType {
	case schema.MsgIndexResponse, schema.MsgError:
	default:
		return relay.Response{}, fmt.Errorf("%w: message_type=%d", ErrUnsupportedVariant, f.Header.MessageType)
	}

	fields, err := decodeFields(f.Payload)
	if err != nil {
		return relay.Response{}, err
	}
	if err := schema.Validate(f.Header.MessageType, fields); err != nil {
		return relay.Response{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	statusField, _ := tlv.GetField(fields, schema.FieldStatus)
	status, err := tlv.U32FromBytes(statusField.Value)
	if err != nil {
		return relay.Response{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	resp := relay.Response{
		MessageID: f.Header.MessageID,
		Status:    status,
	}
	if scope, ok := tlv.GetField(fields, schema.FieldFQDN); ok && scope.Type == tlv.TypeString {
		resp.Scope = string(scope.Value)
	}

	if f.Header.MessageType == schema.MsgError {
		return resp, nil
	}

	for _, group := range tlv.CollectFields(fields, schema.FieldRecord) {
		if err := tlv.MustType(group, tlv.TypeBytes); err != nil {
			return relay.Response{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		rec, err := decodeRecord(group.Value)
		if err != nil {
			return relay.Response{}, err
		}
		resp.Records = append(resp.Records, rec)
	}
	return resp, nil
}

func encodeRecord(rec relay.Record) ([]byte, error) {
	if rec.Key == "" {
		return nil, fmt.Errorf("%w: record missing key", ErrMalformed)
	}
	group := []tlv.Field{
		tlv.String(schema.FieldRecordKey, rec.Key),
		tlv.Bytes(schema.FieldRecordValue, rec.Value),
	}
	if len(rec.Sig) > 0 {
		group = append(group, tlv.Bytes(schema.FieldRecordSig, rec.Sig))
	}
	return tlv.EncodeFields(group), nil
}

func decodeRecord(group []byte) (relay.Record, error) {
	fields, err := decodeFields(group)
	if err != nil {
		return relay.Record{}, err
	}
	key, ok := tlv.GetField(fields, schema.FieldRecordKey)
	if !ok || key.Type != tlv.TypeString || len(key.Value) == 0 {
		return relay.Record{}, fmt.Errorf("%w: record missing key", ErrMalformed)
	}
	value, ok := tlv.GetField(fields, schema.FieldRecordValue)
	if !ok || value.Type != tlv.TypeBytes {
		return relay.Record{}, fmt.Errorf("%w: record missing value", ErrMalformed)
	}
	rec := relay.Record{Key: string(key.Value), Value: value.Value}
	if sig, ok := tlv.GetField(fields, schema.FieldRecordSig); ok {
		if sig.Type != tlv.TypeBytes {
			return relay.Record{}, fmt.Errorf("%w: record sig not bytes", ErrMalformed)
		}
		rec.Sig = sig.Value
	}
	return rec, nil
}

func writeFrame(h frame.Header, fields []tlv.Field) ([]byte, error) {
	var buf bytes.Buffer
	err := frame.WriteFrame(&buf, frame.Frame{
		Header:  h,
		Payload: tlv.EncodeFields(fields),
	}, frame.DefaultLimits())
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeFields(payload []byte) ([]tlv.Field, error) {
	fields, err := tlv.DecodeFields(payload)
	if err != nil {
		// The frame length said the payload was complete, so a short
		// TLV field cannot be cured by more bytes.
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fields, nil
}

func classifyFrameErr(err error) error {
	switch {
	case errors.Is(err, frame.ErrShortHeader), errors.Is(err, frame.ErrTruncated):
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	case errors.Is(err, frame.ErrUnsupportedVer):
		return fmt.Errorf("%w: %v", ErrUnsupportedVariant, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
