package user

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/httpx"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/user/entity"
)

// Credentials is what the handler needs from the credential store.
type Credentials interface {
	Register(ctx context.Context, username, password string) (int64, error)
	Authenticate(ctx context.Context, username, password string) (*entity.Identity, error)
}

// TokenIssuer signs a token for an authenticated identity.
type TokenIssuer interface {
	Issue(id *entity.Identity) (string, error)
}

// Handler exposes HTTP endpoints for user operations (register / login).
type Handler struct {
	svc    Credentials
	tokens TokenIssuer
	logger *zap.SugaredLogger
}

func NewHandler(svc Credentials, tokens TokenIssuer, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// CredentialsRequest is the register and login body.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, "register", err)
		return
	}
	id, err := h.svc.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.WriteError(w, h.logger, "register", err)
		return
	}
	h.logger.Infow("user registered", "user_id", id)
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Success: true, Message: "User registered successfully!"})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteError(w, h.logger, "login", err)
		return
	}
	id, err := h.svc.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		httpx.WriteError(w, h.logger, "login", err)
		return
	}
	resp := LoginResponse{Success: true, Username: id.Username}
	if h.tokens != nil {
		tok, err := h.tokens.Issue(id)
		if err != nil {
			h.logger.Errorw("issue token failed", "user_id", id.ID, "err", err)
			httpx.WriteJSON(w, http.StatusInternalServerError, httpx.Envelope{Success: false, Message: "login failed"})
			return
		}
		resp.Token = tok
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
