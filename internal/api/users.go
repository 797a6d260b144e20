package api

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/thermabackend/internal/auth"
	"github.com/thermabackend/internal/db"
	"github.com/thermabackend/internal/models"
)

const minPasswordLength = 8

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Timezone string `json:"timezone,omitempty"`
}

type SessionResponse struct {
	UserID string       `json:"user_id"`
	Token  string       `json:"token"`
	User   *models.User `json:"user,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Timezone          string   `json:"timezone"`
	TrackedActivities []string `json:"tracked_activities"`
}

// Register handles POST /users.
func (h *Handler) Register(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = h.begin(ctx, request)

	var req RegisterRequest
	if err := decodeBody(request, &req, false); err != nil {
		return h.failure(ctx, "register user", err), nil
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return h.failure(ctx, "register user", err), nil
	}
	if len(req.Password) < minPasswordLength {
		return createErrorResponse(http.StatusBadRequest, "VALIDATION_ERROR", "Password must be at least 8 characters", ""), nil
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return createErrorResponse(http.StatusBadRequest, "VALIDATION_ERROR", "Unknown timezone", timezone), nil
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return h.failure(ctx, "process password", err), nil
	}

	user, err := h.store.CreateUser(ctx, email, hashed, timezone, h.clock.Now())
	if errors.Is(err, db.ErrEmailTaken) {
		return createErrorResponse(http.StatusConflict, "EMAIL_TAKEN", "An account with this email already exists", ""), nil
	}
	if err != nil {
		return h.failure(ctx, "create user", err), nil
	}

	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		return h.failure(ctx, "generate token", err), nil
	}

	h.logger.Info(ctx, "user registered", zap.String("user.id", user.ID))
	return jsonResponse(http.StatusCreated, SessionResponse{UserID: user.ID, Token: token, User: &user}), nil
}

// Login handles POST /sessions.
func (h *Handler) Login(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = h.begin(ctx, request)

	var req LoginRequest
	if err := decodeBody(request, &req, false); err != nil {
		return h.failure(ctx, "log in", err), nil
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return h.failure(ctx, "log in", err), nil
	}

	user, err := h.store.GetUserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return createErrorResponse(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect", ""), nil
	}
	if err != nil {
		return h.failure(ctx, "load user", err), nil
	}
	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		return createErrorResponse(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect", ""), nil
	}

	token, err := h.tokens.GenerateToken(user.ID)
	if err != nil {
		return h.failure(ctx, "generate token", err), nil
	}
	return jsonResponse(http.StatusOK, SessionResponse{UserID: user.ID, Token: token}), nil
}

// UpdateProfile handles PUT /profile.
func (h *Handler) UpdateProfile(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = h.begin(ctx, request)
	ctx, userID, err := h.authenticate(ctx, request)
	if err != nil {
		return unauthorized(err), nil
	}

	var req UpdateProfileRequest
	if err := decodeBody(request, &req, false); err != nil {
		return h.failure(ctx, "update profile", err), nil
	}
	if req.Timezone == "" {
		return createErrorResponse(http.StatusBadRequest, "VALIDATION_ERROR", "Timezone is required", ""), nil
	}
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return createErrorResponse(http.StatusBadRequest, "VALIDATION_ERROR", "Unknown timezone", req.Timezone), nil
	}
	activities, err := normalizeActivities(req.TrackedActivities)
	if err != nil {
		return h.failure(ctx, "update profile", err), nil
	}

	if err := h.store.UpdateProfile(ctx, userID, req.Timezone, activities, h.clock.Now()); err != nil {
		return h.failure(ctx, "update profile", err), nil
	}

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return h.failure(ctx, "load user", err), nil
	}
	return jsonResponse(http.StatusOK, user), nil
}

func normalizeEmail(s string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil || addr.Address != strings.TrimSpace(s) {
		return "", badRequest("VALIDATION_ERROR", "A valid email address is required")
	}
	return strings.ToLower(addr.Address), nil
}

// normalizeActivities lowercases, trims and de-duplicates activity types,
// keeping first-seen order.
func normalizeActivities(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, a := range in {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			return nil, badRequest("VALIDATION_ERROR", "Activity types cannot be empty")
		}
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out, nil
}
