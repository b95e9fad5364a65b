package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lox/chiptracker/internal/engine"
	"github.com/lox/chiptracker/internal/protocol"
)

const maxRequestBody = 64 << 10

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if !s.admissionPreamble(w, r) {
		return
	}

	var req protocol.CreateRoomRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Error: "Player name is required"})
		return
	}

	res, err := s.admission.CreateRoom(r.Context(), req.PlayerName)
	if err != nil {
		s.writeAdmissionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.CreateRoomResponse{RoomCode: res.RoomCode, PlayerID: res.PlayerID})
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	if !s.admissionPreamble(w, r) {
		return
	}

	var req protocol.JoinRoomRequest
	if !s.decodeRequest(w, r, &req) {
		return
	}
	req.RoomCode = strings.TrimSpace(req.RoomCode)
	req.PlayerName = strings.TrimSpace(req.PlayerName)
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Error: "Room code and player name are required"})
		return
	}

	res, err := s.admission.JoinRoom(r.Context(), req.RoomCode, req.PlayerName)
	if err != nil {
		s.writeAdmissionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, protocol.JoinRoomResponse{PlayerID: res.PlayerID})
}

// admissionPreamble sets CORS headers, answers preflight requests and rejects
// anything but POST. It reports whether the handler should continue.
func (s *Server) admissionPreamble(w http.ResponseWriter, r *http.Request) bool {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return false
	case http.MethodPost:
		return true
	default:
		h.Set("Allow", "POST, OPTIONS")
		writeJSON(w, http.StatusMethodNotAllowed, protocol.ErrorResponse{Error: "Method not allowed"})
		return false
	}
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		s.logger.Debug("Invalid request body", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusBadRequest, protocol.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

func (s *Server) writeAdmissionError(w http.ResponseWriter, err error) {
	var admErr *engine.AdmissionError
	if !errors.As(err, &admErr) {
		s.logger.Error("Unexpected admission failure", "error", err)
		writeJSON(w, http.StatusInternalServerError, protocol.ErrorResponse{Error: "Internal server error"})
		return
	}

	if admErr.Kind == engine.KindInternal {
		s.logger.Error("Admission failed", "error", err)
	}
	writeJSON(w, statusForKind(admErr.Kind), protocol.ErrorResponse{Error: admErr.Message})
}

func statusForKind(kind engine.ErrorKind) int {
	switch kind {
	case engine.KindValidation, engine.KindRoomFull:
		return http.StatusBadRequest
	case engine.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // Ignore write errors on a gone client
}
