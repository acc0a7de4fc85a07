package schema

import (
	"fmt"

	"github.com/danmuck/relayctl/internal/protocol/tlv"
)

// Message type IDs from the wire contract. The set is closed; a new
// operation gets a new type code without changing the framing.
const (
	MsgIndexRequest  uint32 = 1
	MsgIndexResponse uint32 = 2
	MsgError         uint32 = 3
)

// Field IDs from the wire contract.
const (
	FieldFQDN   uint16 = 1
	FieldStatus uint16 = 2
	FieldRecord uint16 = 3

	FieldErrorMessage uint16 = 100

	// Record group fields, nested inside each FieldRecord value.
	FieldRecordKey   uint16 = 200
	FieldRecordValue uint16 = 201
	FieldRecordSig   uint16 = 202
)

type Requirement struct {
	ID   uint16
	Type uint8
}

type ValidationError struct {
	MessageType uint32
	FieldID     uint16
	Reason      string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%d: %s", e.MessageType, e.FieldID, e.Reason)
}

var requirements = map[uint32][]Requirement{
	MsgIndexRequest: {
		{FieldFQDN, tlv.TypeString},
	},
	MsgIndexResponse: {
		{FieldStatus, tlv.TypeU32},
	},
	MsgError: {
		{FieldStatus, tlv.TypeU32},
		{FieldErrorMessage, tlv.TypeString},
	},
}

// Known reports whether messageType is part of the wire contract.
func Known(messageType uint32) bool {
	_, ok := requirements[messageType]
	return ok
}

// Validate enforces required fields and required field types for a message
// type. Unknown fields are ignored; repeated fields (records) are allowed.
func Validate(messageType uint32, fields []tlv.Field) error {
	reqs, ok := requirements[messageType]
	if !ok {
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	for _, req := range reqs {
		f, found := tlv.GetField(fields, req.ID)
		if !found {
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "missing required field"}
		}
		if f.Type != req.Type {
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "type mismatch"}
		}
	}
	return nil
}
