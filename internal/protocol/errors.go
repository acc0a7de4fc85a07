package protocol

import "errors"

var (
	// ErrTruncated means the bytes at hand do not contain a complete
	// message. Recoverable: the caller should wait for more data.
	ErrTruncated = errors.New("protocol: truncated message")

	// ErrMalformed means the message can never parse. Fatal for this
	// message only; the stream framing is still intact.
	ErrMalformed = errors.New("protocol: malformed message")

	// ErrUnsupportedVariant means the message carries an unknown message
	// type or protocol version. Fatal for this message only.
	ErrUnsupportedVariant = errors.New("protocol: unsupported variant")

	ErrFQDNRequired = errors.New("protocol: fqdn required")
)
