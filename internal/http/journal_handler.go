package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/journal"
)

const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Submission, error)
}

type JournalHandler struct {
	journal JournalReader
	timeout time.Duration
}

func NewJournalHandler(j JournalReader, timeout time.Duration) *JournalHandler {
	return &JournalHandler{
		journal: j,
		timeout: timeout,
	}
}

type JournalResponse struct {
	Entries []JournalEntryDTO `json:"entries"`
}

// GET /api/v1/journal?limit=N
func (h *JournalHandler) Recent(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxJournalLimit {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	submissions, err := h.journal.Recent(ctx, limit)
	if err != nil {
		handleError(w, err)
		return
	}

	entries := make([]JournalEntryDTO, 0, len(submissions))
	for _, s := range submissions {
		entries = append(entries, toJournalEntryDTO(s))
	}
	respondJSON(w, http.StatusOK, JournalResponse{Entries: entries})
}
