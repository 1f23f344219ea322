package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/markbates/goth/gothic"
	"go.uber.org/zap"

	"github.com/petermazzocco/beauty-advisor/internal/apperr"
	"github.com/petermazzocco/beauty-advisor/internal/auth"
	"github.com/petermazzocco/beauty-advisor/internal/jsonx"
	"github.com/petermazzocco/beauty-advisor/internal/logger"
	"github.com/petermazzocco/beauty-advisor/models"
)

type registerRequest struct {
	Email    string          `json:"email"`
	FullName string          `json:"full_name"`
	Age      json.RawMessage `json:"age"`
	Gender   string          `json:"gender"`
	Username string          `json:"username"`
	Password string          `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
}

func RegisterHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	age, ok := jsonx.Int(req.Age)
	if !ok {
		env.Respond.Error(w, r, apperr.Validation("Age must be a number"))
		return
	}

	user, token, err := env.Auth.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		FullName: req.FullName,
		Age:      age,
		Gender:   req.Gender,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("user registered", zap.Uint("user_id", user.ID))
	env.Respond.JSON(w, http.StatusCreated, sessionResponse{
		Message: "User registered successfully",
		User:    user,
		Token:   token,
	})
}

func LoginHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	user, token, err := env.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	env.Respond.JSON(w, http.StatusOK, sessionResponse{
		Message: "Login successful",
		User:    user,
		Token:   token,
	})
}

func GetUserHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	profile, err := env.Auth.Profile(r.Context(), userID)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.JSON(w, http.StatusOK, profile)
}

func LogoutHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	userID, err := currentUser(r)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	if err := env.Auth.Logout(r.Context(), userID); err != nil {
		env.Respond.Error(w, r, err)
		return
	}
	env.Respond.Message(w, http.StatusOK, "Logout successful")
}

// BeginAuthHandler redirects to the OAuth provider named in the path.
func BeginAuthHandler(w http.ResponseWriter, r *http.Request) {
	r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
	gothic.BeginAuthHandler(w, r)
}

// UserLoginHandler completes the OAuth flow and signs in the account
// registered with the provider's email.
func UserLoginHandler(w http.ResponseWriter, r *http.Request, env *Env) {
	r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		env.Respond.Error(w, r, &apperr.Error{Kind: apperr.KindUnauthorized, Message: "Authentication failed", Err: err})
		return
	}
	if gothUser.Email == "" {
		env.Respond.Error(w, r, apperr.Unauthorized("Provider did not return an email address"))
		return
	}

	user, token, err := env.Auth.LoginWithEmail(r.Context(), gothUser.Email)
	if err != nil {
		env.Respond.Error(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("oauth login",
		zap.Uint("user_id", user.ID),
		zap.String("provider", gothUser.Provider),
	)
	env.Respond.JSON(w, http.StatusOK, sessionResponse{
		Message: "Login successful",
		User:    user,
		Token:   token,
	})
}
