package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thermabackend/internal/db"
	"github.com/thermabackend/internal/idempotency"
	"github.com/thermabackend/internal/logging"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// requestError is a client-facing failure raised inside a handler.
type requestError struct {
	status  int
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func badRequest(code, message string) error {
	return &requestError{status: http.StatusBadRequest, code: code, message: message}
}

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

func createErrorResponse(statusCode int, code, message, details string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(ErrorResponse{Error: message, Code: code, Details: details})
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    jsonHeaders,
		Body:       string(body),
	}
}

func jsonResponse(statusCode int, v interface{}) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		return createErrorResponse(http.StatusInternalServerError, "SERIALIZATION_ERROR", "Failed to serialize response", err.Error())
	}
	return rawResponse(statusCode, body)
}

func rawResponse(statusCode int, body json.RawMessage) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    jsonHeaders,
		Body:       string(body),
	}
}

// failure maps err onto a response. Unexpected errors are logged and their
// details withheld from the client.
func (h *Handler) failure(ctx context.Context, action string, err error) events.APIGatewayProxyResponse {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return createErrorResponse(reqErr.status, reqErr.code, reqErr.message, "")
	case errors.Is(err, db.ErrNotFound):
		return createErrorResponse(http.StatusNotFound, "NOT_FOUND", "Resource not found", "")
	case errors.Is(err, idempotency.ErrInProgress):
		return createErrorResponse(http.StatusConflict, "REQUEST_IN_PROGRESS", "An identical request is still being processed", "")
	case errors.Is(err, idempotency.ErrKeyConflict):
		return createErrorResponse(http.StatusConflict, "IDEMPOTENCY_CONFLICT", "Idempotency key was already used for a different request", "")
	}
	h.logger.Error(ctx, "failed to "+action, zap.Error(err))
	return createErrorResponse(http.StatusInternalServerError, "PROCESSING_ERROR", "Failed to "+action, "")
}

// begin tags ctx with the API Gateway request ID.
func (h *Handler) begin(ctx context.Context, request events.APIGatewayProxyRequest) context.Context {
	requestID := request.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return logging.WithRequestID(ctx, requestID)
}

// authenticate validates the bearer token and tags ctx with the user ID.
func (h *Handler) authenticate(ctx context.Context, request events.APIGatewayProxyRequest) (context.Context, string, error) {
	authHeader := header(request, "Authorization")
	if authHeader == "" {
		return ctx, "", errors.New("missing authorization header")
	}
	claims, err := h.tokens.ValidateToken(authHeader)
	if err != nil {
		return ctx, "", err
	}
	return logging.WithUserID(ctx, claims.UserID), claims.UserID, nil
}

func unauthorized(err error) events.APIGatewayProxyResponse {
	return createErrorResponse(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing authentication token", err.Error())
}

// header looks up a request header case-insensitively.
func header(request events.APIGatewayProxyRequest, name string) string {
	if v, ok := request.Headers[name]; ok {
		return v
	}
	for k, v := range request.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// decodeBody unmarshals the request body into v. An empty body is allowed
// when allowEmpty is set.
func decodeBody(request events.APIGatewayProxyRequest, v interface{}, allowEmpty bool) error {
	if strings.TrimSpace(request.Body) == "" {
		if allowEmpty {
			return nil
		}
		return badRequest("INVALID_REQUEST", "Request body is required")
	}
	if err := json.Unmarshal([]byte(request.Body), v); err != nil {
		return &requestError{status: http.StatusBadRequest, code: "INVALID_REQUEST", message: "Invalid JSON in request body: " + err.Error()}
	}
	return nil
}

// clientKey prefers the Idempotency-Key header over a key in the body.
func clientKey(request events.APIGatewayProxyRequest, bodyKey string) string {
	if k := header(request, "Idempotency-Key"); k != "" {
		return k
	}
	return bodyKey
}

// idempotent runs fn and writes its result with status. Only requests that
// carry a client key go through the idempotency service; without one every
// request is a new record, since repeating a check-in or an activity within
// a day is normal use.
func (h *Handler) idempotent(
	ctx context.Context,
	request events.APIGatewayProxyRequest,
	userID, endpoint, key string,
	status int,
	action string,
	fn func() (interface{}, error),
) events.APIGatewayProxyResponse {
	if key == "" {
		resp, err := fn()
		if err != nil {
			return h.failure(ctx, action, err)
		}
		return jsonResponse(status, resp)
	}
	body, err := h.idempotency.ProcessIdempotentRequest(ctx, userID, endpoint, key, request.Body, fn)
	if err != nil {
		return h.failure(ctx, action, err)
	}
	return rawResponse(status, body)
}

// dayWindow spans the days local calendar days ending with the day of now,
// as [start of first day, start of tomorrow).
func dayWindow(now time.Time, days int) (from, to time.Time) {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return midnight.AddDate(0, 0, -(days - 1)), midnight.AddDate(0, 0, 1)
}
