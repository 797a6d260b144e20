package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/thermabackend/internal/clock"
	"github.com/thermabackend/internal/models"
)

type JournalListResponse struct {
	Entries      []models.JournalEntry `json:"entries"`
	WindowDays   int                   `json:"window_days"`
	WindowCapped bool                  `json:"window_capped"`
}

// ListJournal handles GET /journal-entries?days=N and returns the user's
// entries, newest first, with content and tags decrypted.
func (h *Handler) ListJournal(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	ctx = h.begin(ctx, request)
	ctx, userID, err := h.authenticate(ctx, request)
	if err != nil {
		return unauthorized(err), nil
	}

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		return h.failure(ctx, "load user", err), nil
	}
	days, capped, err := h.windowDays(request, user)
	if err != nil {
		return h.failure(ctx, "list journal entries", err), nil
	}

	from, to := dayWindow(clock.NowIn(h.clock, user.Timezone), days)
	entries, err := h.store.ListJournalEntries(ctx, userID, from, to)
	if err != nil {
		return h.failure(ctx, "list journal entries", err), nil
	}
	for i := range entries {
		if err := h.decryptJournal(ctx, &entries[i]); err != nil {
			return h.failure(ctx, "decrypt journal entry", err), nil
		}
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}

	return jsonResponse(http.StatusOK, JournalListResponse{
		Entries:      entries,
		WindowDays:   days,
		WindowCapped: capped,
	}), nil
}

func (h *Handler) decryptJournal(ctx context.Context, e *models.JournalEntry) error {
	if !e.Encrypted {
		return nil
	}
	content, err := h.cipher.DecryptPHI(ctx, e.Content)
	if err != nil {
		return fmt.Errorf("entry %s content: %w", e.ID, err)
	}
	tags, err := h.cipher.DecryptPHIArray(ctx, e.Tags)
	if err != nil {
		return fmt.Errorf("entry %s tags: %w", e.ID, err)
	}
	e.Content = content
	e.Tags = tags
	e.Encrypted = false
	return nil
}
