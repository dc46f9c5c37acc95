package transcriber

import "errors"

type Kind int

const (
	// KindConfig: missing base URL or key. No request was sent.
	KindConfig Kind = iota + 1
	// KindTransport: the request failed or the body could not be read or parsed.
	KindTransport
	// KindProvider: non-success status or an explicit error in the response.
	KindProvider
	// KindLocal: the local recognizer failed.
	KindLocal
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransport:
		return "transport"
	case KindProvider:
		return "provider"
	case KindLocal:
		return "local"
	}
	return "unknown"
}

// Error carries a user-facing message. Error() returns Msg verbatim so
// provider messages reach the overlay unchanged.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func configError(msg string) error {
	return &Error{Kind: KindConfig, Msg: msg}
}

func transportError(prefix string, err error) error {
	return &Error{Kind: KindTransport, Msg: prefix + ": " + err.Error(), Err: err}
}

func providerError(msg string) error {
	return &Error{Kind: KindProvider, Msg: msg}
}
