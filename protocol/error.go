// Defines constants representing the types
// of errors that the provider may return to a client.

package protocol

import (
	"errors"

	"github.com/smtprovider/smt-provider/merkletree"
)

// ErrorCode is a JSON-RPC 2.0 error code.
type ErrorCode int

const (
	ErrorParse          ErrorCode = -32700
	ErrorInvalidRequest ErrorCode = -32600
	ErrorMethodNotFound ErrorCode = -32601
	ErrorInvalidParams  ErrorCode = -32602
	ErrorInternal       ErrorCode = -32603
)

var (
	errorMessages = map[ErrorCode]error{
		ErrorParse:          errors.New("Parse error"),
		ErrorInvalidRequest: errors.New("Invalid Request"),
		ErrorMethodNotFound: errors.New("Method not found"),
		ErrorInvalidParams:  errors.New("Invalid params"),
		ErrorInternal:       errors.New("Internal error"),
	}
)

func (e ErrorCode) Error() error {
	if errorMessages[e] == nil {
		return errorMessages[ErrorInternal]
	}
	return errorMessages[e]
}

var (
	// ErrParse indicates a request which is not valid JSON.
	ErrParse = errors.New("[protocol] Cannot parse request")
	// ErrMalformedMessage indicates a request which is not a valid
	// JSON-RPC 2.0 request object.
	ErrMalformedMessage = errors.New("[protocol] Malformed request")
	// ErrUnknownMethod indicates a request for a method the provider
	// does not implement.
	ErrUnknownMethod = errors.New("[protocol] Unknown method")
	// ErrMethodNotAllowed indicates a request for a method the
	// receiving address does not accept.
	ErrMethodNotAllowed = errors.New("[protocol] Method not allowed on this address")
	// ErrMalformedParams indicates params which cannot be decoded into
	// the params type of the method.
	ErrMalformedParams = errors.New("[protocol] Malformed params")
	// ErrUnknownTree indicates a request for a tree id which is not
	// stored.
	ErrUnknownTree = errors.New("[protocol] Invalid index")
	// ErrUnknownSource indicates a request naming an unregistered
	// event source.
	ErrUnknownSource = errors.New("[protocol] Unknown event source")
	// ErrSourceTree indicates a manual update of a tree that is fed
	// by an event source.
	ErrSourceTree = errors.New("[protocol] Tree is fed by an event source")
	// ErrManualTree indicates a source update of a tree that is
	// updated manually.
	ErrManualTree = errors.New("[protocol] Tree is not fed by an event source")
	// ErrTooManyKeys indicates a request for more proofs than
	// Policies.MaxKeysPerRequest allows.
	ErrTooManyKeys = errors.New("[protocol] Too many keys")
	// ErrTooManyLeaves indicates an update which would grow a tree
	// past Policies.MaxLeavesPerTree.
	ErrTooManyLeaves = errors.New("[protocol] Too many leaves")
)

var invalidParams = []error{
	ErrMalformedParams,
	ErrUnknownTree,
	ErrUnknownSource,
	ErrSourceTree,
	ErrManualTree,
	ErrTooManyKeys,
	ErrTooManyLeaves,
	merkletree.ErrInvalidDepth,
	merkletree.ErrInvalidKey,
	merkletree.ErrInvalidValue,
	merkletree.ErrMalformedProof,
	merkletree.ErrKeyNotProvable,
}

// CodeOf returns the error code a client receives for err.
func CodeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrParse):
		return ErrorParse
	case errors.Is(err, ErrMalformedMessage):
		return ErrorInvalidRequest
	case errors.Is(err, ErrUnknownMethod), errors.Is(err, ErrMethodNotAllowed):
		return ErrorMethodNotFound
	}
	for _, e := range invalidParams {
		if errors.Is(err, e) {
			return ErrorInvalidParams
		}
	}
	return ErrorInternal
}
