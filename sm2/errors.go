package sm2

import "errors"

// ErrorKind identifies a kind of error. It has full support for errors.Is and
// errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrCurveInit is returned when the domain parameters cannot be loaded
	// or fail their self-consistency checks.
	ErrCurveInit = ErrorKind("ErrCurveInit")

	// ErrInfinityPoint is returned when a public key or derived point is the
	// point at infinity.
	ErrInfinityPoint = ErrorKind("ErrInfinityPoint")

	// ErrNotValidElement is returned when a coordinate lies outside [0, p-1].
	ErrNotValidElement = ErrorKind("ErrNotValidElement")

	// ErrNotValidPoint is returned when a point does not satisfy the curve
	// equation.
	ErrNotValidPoint = ErrorKind("ErrNotValidPoint")

	// ErrOrder is returned when [n]P is not the point at infinity.
	ErrOrder = ErrorKind("ErrOrder")

	// ErrKDFZero is returned when the KDF output used as a keystream is
	// entirely zero. A fresh random k must be drawn.
	ErrKDFZero = ErrorKind("ErrKDFZero")

	// ErrIntegrity is returned when the C3 check value of a ciphertext does
	// not match the recomputed hash.
	ErrIntegrity = ErrorKind("ErrIntegrity")

	// ErrGenerateR is returned when a signing nonce yields r = 0 or r+k = n.
	ErrGenerateR = ErrorKind("ErrGenerateR")

	// ErrGenerateS is returned when a signing nonce yields s = 0.
	ErrGenerateS = ErrorKind("ErrGenerateS")

	// ErrOutOfRangeR is returned when a signature's r is not in [1, n-1].
	ErrOutOfRangeR = ErrorKind("ErrOutOfRangeR")

	// ErrOutOfRangeS is returned when a signature's s is not in [1, n-1].
	ErrOutOfRangeS = ErrorKind("ErrOutOfRangeS")

	// ErrGenerateT is returned when (r+s) mod n = 0 during verification.
	ErrGenerateT = ErrorKind("ErrGenerateT")

	// ErrVerificationFailed is returned when a signature does not verify.
	ErrVerificationFailed = ErrorKind("ErrVerificationFailed")

	// ErrKeyEx is returned when a key exchange produces the point at
	// infinity as its shared point.
	ErrKeyEx = ErrorKind("ErrKeyEx")

	// ErrEqualS1SB is returned when the initiator's recomputed tag does not
	// match the responder's SB.
	ErrEqualS1SB = ErrorKind("ErrEqualS1SB")

	// ErrEqualS2SA is returned when the responder's recomputed tag does not
	// match the initiator's SA.
	ErrEqualS2SA = ErrorKind("ErrEqualS2SA")

	// ErrInvalidLength is returned when an encoded key, signature,
	// ciphertext or plaintext has an unusable length.
	ErrInvalidLength = ErrorKind("ErrInvalidLength")

	// ErrInvalidPrivateKey is returned when a private scalar is outside
	// [1, n-2].
	ErrInvalidPrivateKey = ErrorKind("ErrInvalidPrivateKey")

	// ErrInvalidNonce is returned when a caller supplied k is outside
	// [1, n-1].
	ErrInvalidNonce = ErrorKind("ErrInvalidNonce")

	// ErrInvalidIdentity is returned when a distinguishing identifier is too
	// long for its 16-bit bit-length prefix.
	ErrInvalidIdentity = ErrorKind("ErrInvalidIdentity")

	// ErrSessionState is returned when a key-exchange step is invoked out of
	// order.
	ErrSessionState = ErrorKind("ErrSessionState")

	// ErrAuthentication is the single kind reported by Opaque for every
	// authentication failure.
	ErrAuthentication = ErrorKind("ErrAuthentication")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// IsAuthFailure reports whether the kind means a ciphertext, signature or
// key confirmation did not authenticate.
func (e ErrorKind) IsAuthFailure() bool {
	switch e {
	case ErrIntegrity, ErrVerificationFailed, ErrEqualS1SB, ErrEqualS2SA, ErrAuthentication:
		return true
	}
	return false
}

// Error identifies an error related to SM2 operations. It has full support
// for errors.Is and errors.As, so the caller can ascertain the specific
// reason for the error by checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error given a set of arguments.
func NewError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}

// Opaque collapses every authentication failure into ErrAuthentication so
// that callers exposing errors to a peer do not reveal which check failed.
// Other errors are returned unchanged.
func Opaque(err error) error {
	var kind ErrorKind
	if errors.As(err, &kind) && kind.IsAuthFailure() {
		return NewError(ErrAuthentication, "sm2: authentication failed")
	}
	return err
}
