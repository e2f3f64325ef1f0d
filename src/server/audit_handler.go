package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/model"
	"riskenforcer/src/repository"
)

type auditSearcher interface {
	Search(ctx context.Context, opts repository.AuditSearchOptions) ([]model.EnforcementRecord, error)
}

// SearchAuditHandler returns a handler that lists enforcement records newest
// first. Supports pagination and filters (accountId, ruleId, from, to).
func SearchAuditHandler(repo auditSearcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := r.URL.Query().Get("accountId")

		var ruleID *string
		if ruleParam := r.URL.Query().Get("ruleId"); ruleParam != "" {
			ruleID = &ruleParam
		}

		var since, until *time.Time
		if fromParam := r.URL.Query().Get("from"); fromParam != "" {
			parsed, err := time.Parse(time.RFC3339, fromParam)
			if err != nil {
				http.Error(w, "invalid from", http.StatusBadRequest)
				return
			}
			since = &parsed
		}

		if toParam := r.URL.Query().Get("to"); toParam != "" {
			parsed, err := time.Parse(time.RFC3339, toParam)
			if err != nil {
				http.Error(w, "invalid to", http.StatusBadRequest)
				return
			}
			until = &parsed
		}

		page := 1
		if pageParam := r.URL.Query().Get("page"); pageParam != "" {
			parsedPage, err := strconv.Atoi(pageParam)
			if err != nil || parsedPage <= 0 {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			page = parsedPage
		}

		pageSize := 50
		if sizeParam := r.URL.Query().Get("pageSize"); sizeParam != "" {
			parsedSize, err := strconv.Atoi(sizeParam)
			if err != nil || parsedSize <= 0 {
				http.Error(w, "invalid pageSize", http.StatusBadRequest)
				return
			}
			pageSize = parsedSize
		}

		offset := (page - 1) * pageSize

		records, err := repo.Search(r.Context(), repository.AuditSearchOptions{
			AccountID: accountID,
			RuleID:    ruleID,
			Since:     since,
			Until:     until,
			Limit:     pageSize,
			Offset:    offset,
		})
		if err != nil {
			logger.WithError(err).Error("failed to search enforcement records")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			logger.WithError(err).Error("failed to encode audit search response")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}
}

// DefaultSearchAuditHandler wires the handler to the production repository.
func DefaultSearchAuditHandler() http.HandlerFunc {
	return SearchAuditHandler(repository.NewAuditRepository())
}
