package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aranea-sec/aranea/internal/domain"
	"github.com/aranea-sec/aranea/internal/store"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,32}$`)

const minPasswordLength = 8

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleSignup registers a new operator account.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(req.Username) {
		Error(w, http.StatusBadRequest, "username must be 3-32 characters (letters, digits, _ or -)")
		return
	}
	if len(req.Password) < minPasswordLength {
		Error(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	user := &domain.User{
		UserID:       uuid.NewString(),
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		CreatedAt:    h.now().UTC(),
	}
	if err := h.repo.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			Error(w, http.StatusConflict, "username is already taken")
			return
		}
		slog.Error("Failed to create user", "username", req.Username, "error", err)
		Error(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	slog.Info("User registered", "user_id", user.UserID, "username", user.Username)
	JSON(w, http.StatusCreated, user)
}

// HandleLogin verifies credentials and records the login time.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.repo.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		slog.Error("Failed to look up user", "username", req.Username, "error", err)
		Error(w, http.StatusInternalServerError, "login failed")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(req.Password)) != nil {
		Error(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	at := h.now().UTC()
	if err := h.repo.UpdateLastLogin(r.Context(), user.UserID, at); err != nil {
		slog.Warn("Failed to record login time", "user_id", user.UserID, "error", err)
	}
	user.LastLoginAt = &at

	JSON(w, http.StatusOK, user)
}
