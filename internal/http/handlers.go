package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"khata/internal/auth"
	"khata/internal/core"
	"khata/internal/profile"
	"khata/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps validation and lookup failures onto status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var fieldErr *core.FieldError
	switch {
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": fieldErr.Msg,
			"field": fieldErr.Field,
		})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Transaction not found")
	default:
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return false
	}
	return true
}

// --- auth ---

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			status := http.StatusUnauthorized
			if authErr.Code == auth.CodeNetwork {
				status = http.StatusBadGateway
			}
			writeError(w, status, authErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "Sign in failed. Please try again")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"uid":         id.UID,
		"email":       id.Email,
		"displayName": s.profiles.DisplayName(r.Context(), id.UID, id.Email),
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, _ *http.Request) {
	s.auth.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

func (s *Server) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.auth.SendPasswordReset(r.Context(), req.Email); err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			writeError(w, http.StatusBadRequest, authErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "Could not send the reset email")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// --- transactions ---

type transactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

func (req transactionRequest) input() core.TransactionInput {
	return core.TransactionInput{
		Type:        req.Type,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
	}
}

func (s *Server) actor(r *http.Request, id auth.Identity) store.Actor {
	return store.Actor{
		ID:          id.UID,
		DisplayName: s.profiles.DisplayName(r.Context(), id.UID, id.Email),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	if raw := r.URL.Query().Get("period"); raw != "" {
		period, err := core.ParsePeriod(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Period must be YYYY-MM")
			return
		}
		s.store.SetSelectedPeriod(period)
	}

	txs := s.store.PeriodTransactions()
	out := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionResponse(tx)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":       s.store.SelectedPeriod().String(),
		"transactions": out,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tx, err := s.store.Add(r.Context(), req.input(), s.actor(r, id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	merged, err := s.store.Edit(r.Context(), r.PathValue("id"), req.input(), s.actor(r, id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(merged))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	s.store.Delete(r.Context(), r.PathValue("id"), id.UID)
	w.WriteHeader(http.StatusNoContent)
}

// --- report, period, export ---

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	if raw := r.URL.Query().Get("period"); raw != "" {
		period, err := core.ParsePeriod(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Period must be YYYY-MM")
			return
		}
		s.store.SetSelectedPeriod(period)
	}
	writeJSON(w, http.StatusOK, toReportResponse(s.store.Report()))
}

type setPeriodRequest struct {
	Period string `json:"period"`
}

func (s *Server) handleSetPeriod(w http.ResponseWriter, r *http.Request, _ auth.Identity) {
	var req setPeriodRequest
	if !decodeBody(w, r, &req) {
		return
	}
	period, err := core.ParsePeriod(req.Period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Period must be YYYY-MM")
		return
	}
	s.store.SetSelectedPeriod(period)
	writeJSON(w, http.StatusOK, map[string]string{"period": period.String()})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request, _ auth.Identity) {
	txs := s.store.PeriodTransactions()
	data, err := core.ExportCSV(txs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	filename := core.ExportFilename(s.store.SelectedPeriod(), time.Now())
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// --- sync ---

func (s *Server) handleSyncState(w http.ResponseWriter, _ *http.Request) {
	state := s.sync.State()
	writeJSON(w, http.StatusOK, map[string]string{
		"phase":   string(state.Phase),
		"message": state.Message,
	})
}

func (s *Server) handleSyncRetry(w http.ResponseWriter, _ *http.Request, _ auth.Identity) {
	s.sync.Retry()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "retrying"})
}

// --- profile ---

type setUsernameRequest struct {
	Username       string `json:"username"`
	RewriteCreator bool   `json:"rewriteCreator"`
}

func (s *Server) handleSetUsername(w http.ResponseWriter, r *http.Request, id auth.Identity) {
	var req setUsernameRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.profiles.SetUsername(r.Context(), id.UID, req.Username, req.RewriteCreator); err != nil {
		if errors.Is(err, profile.ErrInvalidUsername) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Could not save the username")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": req.Username})
}
