package demux

import "errors"

// ErrorKind classifies demuxing failures. Every kind is itself an error so
// callers can match with errors.Is.
type ErrorKind uint8

// Error kinds. The zero value means no error has been recorded.
const (
	ErrNeedMoreData ErrorKind = iota + 1
	ErrMissingCapturePattern
	ErrInvalidStreamStructureVersion
	ErrContinuedPacketFlagInvalid
	ErrUnexpectedEndOfInput
	ErrInvalidFirstPage
	ErrInvalidSetup
	ErrIncorrectStreamSerialNumber
	ErrBadPacketType
	ErrCantFindLastPage
	ErrSeekFailed
	ErrSegmentNotConsumed
)

var kindMessages = map[ErrorKind]string{
	ErrNeedMoreData:                  "need more data",
	ErrMissingCapturePattern:         "missing capture pattern",
	ErrInvalidStreamStructureVersion: "invalid stream structure version",
	ErrContinuedPacketFlagInvalid:    "continued packet flag invalid",
	ErrUnexpectedEndOfInput:          "unexpected end of input",
	ErrInvalidFirstPage:              "invalid first page",
	ErrInvalidSetup:                  "invalid setup",
	ErrIncorrectStreamSerialNumber:   "incorrect stream serial number",
	ErrBadPacketType:                 "bad packet type",
	ErrCantFindLastPage:              "can't find last page",
	ErrSeekFailed:                    "seek failed",
	ErrSegmentNotConsumed:            "previous segment not consumed",
}

func (k ErrorKind) Error() string {
	if k == 0 {
		return "ogg: no error"
	}
	if msg, ok := kindMessages[k]; ok {
		return "ogg: " + msg
	}
	return "ogg: unknown error"
}

// String returns the error message without the package prefix.
func (k ErrorKind) String() string {
	if k == 0 {
		return "none"
	}
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "unknown"
}

// KindOf extracts the ErrorKind from err, or 0 if err carries none.
func KindOf(err error) ErrorKind {
	var k ErrorKind
	if errors.As(err, &k) {
		return k
	}
	return 0
}
