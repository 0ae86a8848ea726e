// Defines methods/functions to encode/decode messages between client
// and server. Messages are JSON-RPC 2.0 objects.

package application

import (
	"encoding/json"
	"fmt"

	"github.com/smtprovider/smt-provider/protocol"
)

// MarshalRequest returns a JSON encoding of the client's request.
func MarshalRequest(method string, id int64, params interface{}) ([]byte, error) {
	req, err := protocol.NewRequest(method, id, params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(req)
}

// UnmarshalRequest parses a JSON-encoded request msg and decodes its
// params into the params type of its method. The returned request is
// non-nil whenever its id could be read, so that errors can be
// reported to the caller.
func UnmarshalRequest(msg []byte) (*protocol.Request, interface{}, error) {
	var req protocol.Request
	if err := json.Unmarshal(msg, &req); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", protocol.ErrParse, err)
	}
	if err := req.Validate(); err != nil {
		return &req, nil, err
	}
	params, err := protocol.NewParams(req.Method)
	if err != nil {
		return &req, nil, fmt.Errorf("%w: %q", err, req.Method)
	}
	if len(req.Params) == 0 {
		return &req, nil, fmt.Errorf("%w: missing params", protocol.ErrMalformedParams)
	}
	if err := json.Unmarshal(req.Params, params); err != nil {
		return &req, nil, fmt.Errorf("%w: %v", protocol.ErrMalformedParams, err)
	}
	return &req, params, nil
}

// MarshalResponse returns a JSON encoding of the server's response.
func MarshalResponse(response *protocol.Response) ([]byte, error) {
	return json.Marshal(response)
}

// UnmarshalResponse decodes the given message into the result type of
// method. If the server reported an error, UnmarshalResponse returns
// it as a *protocol.ErrorObject.
func UnmarshalResponse(method string, msg []byte) (interface{}, error) {
	type Response struct {
		JSONRPC string                `json:"jsonrpc"`
		Result  json.RawMessage       `json:"result"`
		Error   *protocol.ErrorObject `json:"error"`
	}
	var res Response
	if err := json.Unmarshal(msg, &res); err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrParse, err)
	}
	if res.JSONRPC != protocol.Version {
		return nil, protocol.ErrMalformedMessage
	}
	if res.Error != nil {
		return nil, res.Error
	}
	result, err := protocol.NewResult(method)
	if err != nil {
		return nil, err
	}
	if len(res.Result) == 0 {
		return nil, protocol.ErrMalformedMessage
	}
	if err := json.Unmarshal(res.Result, result); err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrMalformedMessage, err)
	}
	return result, nil
}
