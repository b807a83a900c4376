package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/Paul1298/GPyOpt/internal/logging"
	"github.com/Paul1298/GPyOpt/internal/optimization"
	"github.com/Paul1298/GPyOpt/internal/optimization/acqopt"
	"github.com/Paul1298/GPyOpt/internal/optimization/bayesian"
	"github.com/Paul1298/GPyOpt/internal/optimization/space"
)

// errBadRequest marks request bodies that could not be decoded or lack a
// design space.
var errBadRequest = errors.New("bad request")

// SuggestRequest is the body of POST /api/v1/suggest and the params of the
// acquisition.suggest method. Points are in objective space.
type SuggestRequest struct {
	// Space overrides the server's default design space.
	Space   []space.VariableConfig `json:"space,omitempty"`
	X       [][]float64            `json:"X"`
	Y       []float64              `json:"Y"`
	Pending [][]float64            `json:"pending,omitempty"`
	Ignored [][]float64            `json:"ignored,omitempty"`
	Context acqopt.Context         `json:"context,omitempty"`
	XOpt    []float64              `json:"x_opt,omitempty"`
}

// SuggestResponse is the next point to evaluate. Value is null for points
// drawn from the initial design.
type SuggestResponse struct {
	X            []float64 `json:"x"`
	XModel       []float64 `json:"x_model"`
	Value        *float64  `json:"value"`
	AnchorIndex  int       `json:"anchor_index"`
	SpecifiedWon bool      `json:"specified_won"`
	FellBack     bool      `json:"fell_back"`
	Initial      bool      `json:"initial"`
}

// DiagnosticsResponse summarizes the suggestions served over the default
// space.
type DiagnosticsResponse struct {
	Calls        int `json:"calls"`
	SpecWinCount int `json:"spec_win_count"`
	Fallbacks    int `json:"fallbacks"`
	Failures     int `json:"failures"`
}

// suggest resolves the space of req and runs one suggestion.
func (s *Server) suggest(ctx context.Context, req *SuggestRequest) (*SuggestResponse, error) {
	sg := s.suggester
	if len(req.Space) > 0 {
		sp, err := space.FromConfigs(req.Space)
		if err != nil {
			return nil, err
		}
		if sg, err = s.newSuggester(sp); err != nil {
			return nil, err
		}
	}
	if sg == nil {
		return nil, fmt.Errorf("%w: no design space given and no default configured", errBadRequest)
	}

	out, err := sg.Suggest(ctx, bayesian.Request{
		X:       req.X,
		Y:       req.Y,
		Pending: req.Pending,
		Ignored: req.Ignored,
		Context: req.Context,
		XOpt:    req.XOpt,
	})
	if err != nil {
		return nil, err
	}

	resp := &SuggestResponse{
		X:            out.X,
		XModel:       out.XModel,
		AnchorIndex:  out.AnchorIndex,
		SpecifiedWon: out.SpecifiedWon,
		FellBack:     out.FellBack,
		Initial:      out.Initial,
	}
	if !math.IsNaN(out.Value) {
		v := out.Value
		resp.Value = &v
	}
	return resp, nil
}

// statusFor maps a suggestion error to an HTTP status.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, optimization.ErrInvalidObservations),
		errors.Is(err, optimization.ErrInvalidPoint),
		errors.Is(err, optimization.ErrInvalidSpace),
		errors.Is(err, optimization.ErrUnknownVariable),
		errors.Is(err, optimization.ErrInvalidContext),
		errors.Is(err, optimization.ErrInvalidBounds):
		return http.StatusBadRequest
	case errors.Is(err, optimization.ErrNoAnchorPoints):
		return http.StatusConflict
	case errors.Is(err, optimization.ErrOptimizationTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleSuggest handles POST /api/v1/suggest.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req SuggestRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.HTTP.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
		}
		s.respondError(w, log, err)
		return
	}

	resp, err := s.suggest(r.Context(), &req)
	if err != nil {
		s.respondError(w, log, err)
		return
	}

	log.Debug("Suggestion served", map[string]interface{}{
		"x":       resp.X,
		"initial": resp.Initial,
	})
	writeJSON(w, http.StatusOK, resp)
}

// handleDiagnostics handles GET /api/v1/diagnostics.
func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no default design space configured"})
		return
	}
	writeJSON(w, http.StatusOK, s.diagnostics())
}

func (s *Server) diagnostics() DiagnosticsResponse {
	d := s.suggester.Diagnostics()
	return DiagnosticsResponse{
		Calls:        d.Calls(),
		SpecWinCount: d.SpecWinCount(),
		Fallbacks:    d.Fallbacks(),
		Failures:     d.Failures(),
	}
}

func (s *Server) respondError(w http.ResponseWriter, log *logging.CtxLogger, err error) {
	status := statusFor(err)
	fields := map[string]interface{}{"status": status, "error": err.Error()}
	if status >= http.StatusInternalServerError {
		log.Error("Suggestion failed", fields)
	} else {
		log.Warn("Suggestion rejected", fields)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
