package decode

import "fmt"

// Kind classifies why an on-chain byte buffer could not be decoded.
type Kind int

const (
	TruncatedData Kind = iota + 1
	InvalidState
	MalformedTlv
	UnknownLayout
)

func (k Kind) String() string {
	switch k {
	case TruncatedData:
		return "truncated data"
	case InvalidState:
		return "invalid state"
	case MalformedTlv:
		return "malformed tlv"
	case UnknownLayout:
		return "unknown layout"
	default:
		return fmt.Sprintf("decode kind %d", int(k))
	}
}

// Error is returned by every layout decoder. Two Errors match under
// errors.Is when their kinds are equal, so the sentinels below can be used
// as targets.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrTruncatedData = &Error{Kind: TruncatedData}
	ErrInvalidState  = &Error{Kind: InvalidState}
	ErrMalformedTlv  = &Error{Kind: MalformedTlv}
	ErrUnknownLayout = &Error{Kind: UnknownLayout}
)

func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
