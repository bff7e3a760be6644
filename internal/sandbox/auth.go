package sandbox

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(acct.hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = req.Email
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, ports.AccessToken{Value: token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct, ok := s.accounts[callerEmail(r)]
	var u ports.User
	if ok {
		u = acct.user
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Account not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req ports.RegistrationRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := checkRegistration(req); msg != "" {
		writeError(w, http.StatusBadRequest, "invalid_registration", msg)
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email_taken", "An account with this email already exists")
		return
	}
	code := s.otp()
	s.pending[req.Email] = pendingRegistration{req: req, otp: code}
	s.mu.Unlock()

	s.info(r.Context(), "registration code issued", ports.F("email", req.Email), ports.F("otp", code))
	w.WriteHeader(http.StatusNoContent)
}

func checkRegistration(req ports.RegistrationRequest) string {
	switch {
	case strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "":
		return "Name is required"
	case !strings.Contains(req.Email, "@"):
		return "A valid email is required"
	case len(req.Password) < 6:
		return "Password must be at least 6 characters"
	case req.Password != req.ConfirmPassword:
		return "Passwords do not match"
	}
	return ""
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req ports.VerifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	pending, ok := s.pending[req.Data.Email]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "no_pending_registration", "No registration is waiting for a code")
		return
	}
	if req.OTPCode != pending.otp {
		writeJSON(w, http.StatusOK, ports.VerifyOTPResult{Success: false, Message: "The code is incorrect"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pending.req.Password), s.cost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Could not create account")
		return
	}
	s.mu.Lock()
	delete(s.pending, req.Data.Email)
	s.accounts[pending.req.Email] = &account{
		user: ports.User{
			ID:        newID("usr"),
			FirstName: pending.req.FirstName,
			LastName:  pending.req.LastName,
			Email:     pending.req.Email,
			Language:  pending.req.SelectedLanguage,
			Level:     pending.req.Proficiency,
		},
		hash: hash,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, ports.VerifyOTPResult{Success: true, Message: "Account verified"})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	_, ok := s.accounts[req.Email]
	var code string
	if ok {
		code = s.otp()
		s.resets[req.Email] = &resetState{otp: code}
	}
	s.mu.Unlock()

	if ok {
		s.info(r.Context(), "reset code issued", ports.F("email", req.Email), ports.F("otp", code))
	}
	// Unknown addresses get the same answer.
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	reset, ok := s.resets[req.Email]
	if !ok || reset.otp != req.OTP {
		writeError(w, http.StatusBadRequest, "invalid_otp", "Invalid or expired code")
		return
	}
	reset.verified = true
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ports.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "password_mismatch", "Passwords do not match")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Could not update password")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	reset, ok := s.resets[req.Email]
	if !ok || !reset.verified {
		writeError(w, http.StatusBadRequest, "reset_not_verified", "Verify the reset code first")
		return
	}
	acct, ok := s.accounts[req.Email]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Account not found")
		return
	}
	acct.hash = hash
	delete(s.resets, req.Email)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ports.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "password_mismatch", "Passwords do not match")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[callerEmail(r)]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Account not found")
		return
	}
	if bcrypt.CompareHashAndPassword(acct.hash, []byte(req.CurrentPassword)) != nil {
		writeError(w, http.StatusBadRequest, "wrong_password", "Current password is incorrect")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Could not update password")
		return
	}

	s.mu.Lock()
	acct.hash = hash
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Malformed profile form")
		return
	}

	var avatarName string
	if file, header, err := r.FormFile("avatar"); err == nil {
		avatarName = header.Filename
		_ = file.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[callerEmail(r)]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Account not found")
		return
	}
	if v := r.FormValue("firstName"); v != "" {
		acct.user.FirstName = v
	}
	if v := r.FormValue("lastName"); v != "" {
		acct.user.LastName = v
	}
	if v := r.FormValue("selectedLanguage"); v != "" {
		acct.user.Language = v
	}
	if avatarName != "" {
		acct.user.AvatarURL = "/avatars/" + acct.user.ID + "/" + avatarName
	}
	writeJSON(w, http.StatusOK, acct.user)
}
