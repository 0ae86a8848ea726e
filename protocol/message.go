// Defines the message format of the provider's JSON-RPC interface
// and constructors for the response messages.

package protocol

import (
	"encoding/json"

	"github.com/smtprovider/smt-provider/crypto"
)

// Version is the only JSON-RPC version the provider speaks.
const Version = "2.0"

// The methods a client can call.
const (
	MethodAddTreeManually             = "addTreeManually"
	MethodAddTreeFromSource           = "addTreeFromSource"
	MethodUpdateTreeManually          = "updateTreeManually"
	MethodExtraUpdateTreeFromSource   = "extraUpdateTreeFromSource"
	MethodGetRoot                     = "getRoot"
	MethodGetProofByKey               = "getProofByKey"
	MethodGetProofByKeys              = "getProofByKeys"
	MethodGetProofByKeyWithCondition  = "getProofByKeyWithCondition"
	MethodGetProofByKeysWithCondition = "getProofByKeysWithCondition"
	MethodVerifyProof                 = "verifyProof"
)

// UpdateMethods are the methods which modify stored trees. A server
// address only accepts them if it allows updates.
var UpdateMethods = []string{
	MethodAddTreeManually,
	MethodAddTreeFromSource,
	MethodUpdateTreeManually,
	MethodExtraUpdateTreeFromSource,
}

// A Request is a JSON-RPC 2.0 request object. Params holds the raw
// encoding of the method's params type, see NewParams.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// A Response is a JSON-RPC 2.0 response object. Exactly one of
// Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// An ErrorObject describes a failed request. Data carries the reason
// for ErrorInvalidParams errors.
type ErrorObject struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    string    `json:"data,omitempty"`
}

func (e *ErrorObject) Error() string {
	if e.Data != "" {
		return e.Message + ": " + e.Data
	}
	return e.Message
}

// Leaves maps keys to values, both encoded as strings. A zero value
// removes the key.
type Leaves map[string]string

// AddTreeManuallyParams creates a tree from explicit leaves.
// The result is the id of the new tree.
type AddTreeManuallyParams struct {
	Depth  uint32 `json:"depth"`
	Leaves Leaves `json:"leaves"`
}

// AddTreeFromSourceParams creates a tree fed by the named event source.
// The result is the id of the new tree.
type AddTreeFromSourceParams struct {
	Depth  uint32 `json:"depth"`
	Source string `json:"source"`
}

// UpdateTreeManuallyParams merges Leaves into a manual tree.
// The result is true.
type UpdateTreeManuallyParams struct {
	Index  string `json:"index"`
	Leaves Leaves `json:"leaves"`
}

// IndexParams names a tree. It is the params type of getRoot, whose
// result is the root, and of extraUpdateTreeFromSource, whose result
// is true.
type IndexParams struct {
	Index string `json:"index"`
}

// ProofByKeyParams requests the proof of Key. The result is the proof.
type ProofByKeyParams struct {
	Index string `json:"index"`
	Key   string `json:"key"`
}

// ProofByKeysParams requests the proofs of Keys. The result is the
// list of proofs in the order of Keys.
type ProofByKeysParams struct {
	Index string   `json:"index"`
	Keys  []string `json:"keys"`
}

// ProofByKeyWithConditionParams requests the proof of Key in the tree
// obtained by applying Condition to the stored tree. The stored tree
// is not modified.
type ProofByKeyWithConditionParams struct {
	Index     string `json:"index"`
	Key       string `json:"key"`
	Condition Leaves `json:"condition"`
}

// ProofByKeysWithConditionParams is ProofByKeyWithConditionParams for
// several keys.
type ProofByKeysWithConditionParams struct {
	Index     string   `json:"index"`
	Keys      []string `json:"keys"`
	Condition Leaves   `json:"condition"`
}

// VerifyProofParams asks the provider to replay a proof. If Root is
// set, the result also tells whether the replayed root matches it.
type VerifyProofParams struct {
	Depth uint32 `json:"depth"`
	Key   string `json:"key"`
	Value string `json:"value"`
	Proof string `json:"proof"`
	Root  string `json:"root,omitempty"`
}

// VerifyProofResult is the result of verifyProof.
type VerifyProofResult struct {
	Root  crypto.Hash `json:"root"`
	Valid *bool       `json:"valid,omitempty"`
}

// NewParams returns a pointer to a zero value of the params type of
// method, or ErrUnknownMethod.
func NewParams(method string) (interface{}, error) {
	switch method {
	case MethodAddTreeManually:
		return new(AddTreeManuallyParams), nil
	case MethodAddTreeFromSource:
		return new(AddTreeFromSourceParams), nil
	case MethodUpdateTreeManually:
		return new(UpdateTreeManuallyParams), nil
	case MethodExtraUpdateTreeFromSource, MethodGetRoot:
		return new(IndexParams), nil
	case MethodGetProofByKey:
		return new(ProofByKeyParams), nil
	case MethodGetProofByKeys:
		return new(ProofByKeysParams), nil
	case MethodGetProofByKeyWithCondition:
		return new(ProofByKeyWithConditionParams), nil
	case MethodGetProofByKeysWithCondition:
		return new(ProofByKeysWithConditionParams), nil
	case MethodVerifyProof:
		return new(VerifyProofParams), nil
	}
	return nil, ErrUnknownMethod
}

// NewResult returns a pointer to a zero value of the result type of
// method, or ErrUnknownMethod.
func NewResult(method string) (interface{}, error) {
	switch method {
	case MethodAddTreeManually, MethodAddTreeFromSource,
		MethodGetProofByKey, MethodGetProofByKeyWithCondition:
		return new(string), nil
	case MethodUpdateTreeManually, MethodExtraUpdateTreeFromSource:
		return new(bool), nil
	case MethodGetRoot:
		return new(crypto.Hash), nil
	case MethodGetProofByKeys, MethodGetProofByKeysWithCondition:
		return new([]string), nil
	case MethodVerifyProof:
		return new(VerifyProofResult), nil
	}
	return nil, ErrUnknownMethod
}

// NewRequest creates a request for method carrying params.
func NewRequest(method string, id int64, params interface{}) (*Request, error) {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	rawID, _ := json.Marshal(id)
	return &Request{
		JSONRPC: Version,
		Method:  method,
		Params:  rawParams,
		ID:      rawID,
	}, nil
}

// NewResponse creates a successful response to the request with the
// given id.
func NewResponse(id json.RawMessage, result interface{}) *Response {
	return &Response{
		JSONRPC: Version,
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse creates the response reporting err to the request
// with the given id. The reason is only disclosed for errors caused by
// the request itself.
func NewErrorResponse(id json.RawMessage, err error) *Response {
	code := CodeOf(err)
	obj := &ErrorObject{
		Code:    code,
		Message: code.Error().Error(),
	}
	if code != ErrorInternal {
		obj.Data = err.Error()
	}
	return &Response{
		JSONRPC: Version,
		Error:   obj,
		ID:      id,
	}
}

// Validate checks the envelope of req.
func (req *Request) Validate() error {
	if req.JSONRPC != Version || req.Method == "" {
		return ErrMalformedMessage
	}
	return nil
}
