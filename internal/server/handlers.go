package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/google/uuid"

	"github.com/michaelbrown/podmirror/internal/cluster"
	"github.com/michaelbrown/podmirror/internal/mirrord"
	"github.com/michaelbrown/podmirror/internal/orchestrator"
	"github.com/michaelbrown/podmirror/internal/runner"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Request/response shapes ---

type runRequest struct {
	Language      string `json:"language"`
	Code          string `json:"code"`
	Command       string `json:"command"`
	Deployment    string `json:"deployment"`
	Namespace     string `json:"namespace"`
	MirrordConfig string `json:"mirrord_config"`
}

type runResponse struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// buildRequest turns the wire request into an orchestrator request.
func (s *Server) buildRequest(req runRequest) (orchestrator.Request, error) {
	var rn runner.Runnable
	switch {
	case req.Command != "":
		rn = runner.NewCommand(req.Command)
	case req.Language != "" && req.Code != "":
		var err error
		rn, err = runner.New(req.Language, req.Code, s.cfg.RunnerToolchain())
		if err != nil {
			return orchestrator.Request{}, err
		}
	default:
		return orchestrator.Request{}, errors.New("request needs either command, or language and code")
	}

	mirrordCfg := req.MirrordConfig
	if mirrordCfg == "" {
		mirrordCfg = "{}"
	}

	return orchestrator.Request{
		Runnable:      rn,
		Deployment:    req.Deployment,
		Namespace:     req.Namespace,
		MirrordConfig: []byte(mirrordCfg),
	}, nil
}

// --- Handlers ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs := append(runner.Languages(), "command")
	sort.Strings(langs)
	writeJSON(w, http.StatusOK, map[string][]string{"languages": langs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON: "+err.Error())
		return
	}
	if req.Deployment == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "deployment is required")
		return
	}

	oreq, err := s.buildRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	id := uuid.New().String()
	ctx := s.runs.Begin(id, r.Context())
	defer s.runs.End(id)

	result, err := s.runner.Run(ctx, oreq)
	if err != nil {
		status, kind := classifyError(err)
		writeError(w, status, kind, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, runResponse{Stdout: result.Stdout, Stderr: result.Stderr})
}

// classifyError maps the error taxonomy onto HTTP statuses and wire kinds.
func classifyError(err error) (int, string) {
	var cfgErr *mirrord.ConfigError
	if errors.As(err, &cfgErr) {
		switch cfgErr.Kind {
		case mirrord.InvalidJSON:
			return http.StatusBadRequest, "invalid_json"
		case mirrord.NotAnObject:
			return http.StatusBadRequest, "not_an_object"
		default:
			return http.StatusInternalServerError, "serialize_failed"
		}
	}

	var resErr *cluster.ResolveError
	if errors.As(err, &resErr) {
		switch resErr.Kind {
		case cluster.NotFound:
			return http.StatusNotFound, "deployment_not_found"
		case cluster.Timeout:
			return http.StatusGatewayTimeout, "resolve_timeout"
		default:
			return http.StatusBadGateway, "query_failed"
		}
	}

	var setupErr *runner.SetupError
	if errors.As(err, &setupErr) {
		return http.StatusBadRequest, "setup_failed"
	}

	var execErr *mirrord.ExecError
	if errors.As(err, &execErr) {
		switch execErr.Kind {
		case mirrord.Timeout:
			return http.StatusGatewayTimeout, "execution_timeout"
		case mirrord.NonZeroExit:
			return http.StatusBadGateway, "execution_failed"
		case mirrord.ToolNotFound:
			return http.StatusInternalServerError, "tool_not_found"
		default:
			return http.StatusInternalServerError, "spawn_failed"
		}
	}

	return http.StatusInternalServerError, "internal"
}
