package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Paul1298/GPyOpt/internal/logging"
)

// JSON-RPC 2.0 error codes.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcServerError    = -32000
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests. Methods:
//
//	acquisition.suggest      params: SuggestRequest, or a one-element array of it
//	acquisition.diagnostics  no params
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var request rpcRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&request); err != nil {
		s.respondWithError(w, log, nil, rpcParseError, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" || request.Method == "" {
		s.respondWithError(w, log, request.ID, rpcInvalidRequest, "Invalid Request", nil)
		return
	}

	var result interface{}
	switch request.Method {
	case "acquisition.suggest":
		var params SuggestRequest
		if err := decodeParams(request.Params, &params); err != nil {
			s.respondWithError(w, log, request.ID, rpcInvalidParams, "Invalid params", err.Error())
			return
		}
		resp, err := s.suggest(r.Context(), &params)
		if err != nil {
			code := rpcServerError
			if statusFor(err) == http.StatusBadRequest {
				code = rpcInvalidParams
			}
			s.respondWithError(w, log, request.ID, code, "Suggestion failed", err.Error())
			return
		}
		result = resp
	case "acquisition.diagnostics":
		if s.suggester == nil {
			s.respondWithError(w, log, request.ID, rpcServerError, "No default design space configured", nil)
			return
		}
		result = s.diagnostics()
	default:
		s.respondWithError(w, log, request.ID, rpcMethodNotFound, "Method not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: request.ID, Result: result})
}

// decodeParams accepts params either by name or as a one-element array.
func decodeParams(raw json.RawMessage, dst interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return errors.New("missing params")
	}
	if raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return err
		}
		if len(list) != 1 {
			return errors.New("expected exactly one params object")
		}
		raw = list[0]
	}
	return json.Unmarshal(raw, dst)
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, log *logging.CtxLogger, id interface{}, code int, message string, data interface{}) {
	log.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
		"data":    data,
	})
	writeJSON(w, http.StatusOK, rpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &rpcError{Code: code, Message: message, Data: data},
	})
}
