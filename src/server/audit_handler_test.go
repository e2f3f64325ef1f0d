package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"riskenforcer/src/model"
	"riskenforcer/src/repository"

	"github.com/stretchr/testify/assert"
)

type mockAuditSearcher struct {
	records     []model.EnforcementRecord
	err         error
	opts        repository.AuditSearchOptions
	calledCount int
}

func (m *mockAuditSearcher) Search(ctx context.Context, opts repository.AuditSearchOptions) ([]model.EnforcementRecord, error) {
	m.calledCount++
	m.opts = opts
	return m.records, m.err
}

func TestSearchAuditHandler_Success(t *testing.T) {
	records := []model.EnforcementRecord{{ID: 1, RecordID: "rec-1", AccountID: "acct-1"}}
	mockRepo := &mockAuditSearcher{records: records}
	handler := SearchAuditHandler(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/audit?accountId=acct-1&ruleId=daily_realized_loss&from=2025-06-01T00:00:00Z&to=2025-06-03T00:00:00Z&page=2&pageSize=5", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	if mockRepo.calledCount != 1 {
		t.Fatalf("expected repository to be called once, got %d", mockRepo.calledCount)
	}

	if mockRepo.opts.AccountID != "acct-1" {
		t.Fatalf("expected account filter acct-1, got %q", mockRepo.opts.AccountID)
	}

	if mockRepo.opts.RuleID == nil || *mockRepo.opts.RuleID != "daily_realized_loss" {
		t.Fatalf("expected rule filter, got %v", mockRepo.opts.RuleID)
	}

	if mockRepo.opts.Since == nil || mockRepo.opts.Until == nil {
		t.Fatalf("expected time filters to be set")
	}

	wantSince := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if !mockRepo.opts.Since.Equal(wantSince) {
		t.Fatalf("wrong since filter: %s", mockRepo.opts.Since)
	}

	if mockRepo.opts.Limit != 5 || mockRepo.opts.Offset != 5 {
		t.Fatalf("expected limit 5 and offset 5, got limit=%d offset=%d", mockRepo.opts.Limit, mockRepo.opts.Offset)
	}

	if rr.Body.String() == "" {
		t.Fatalf("expected response body to be set")
	}
}

func TestSearchAuditHandler_RepoError(t *testing.T) {
	mockRepo := &mockAuditSearcher{err: assert.AnError}
	handler := SearchAuditHandler(mockRepo)

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}

	if mockRepo.calledCount != 1 {
		t.Fatalf("expected repository to be called once, got %d", mockRepo.calledCount)
	}
}

func TestSearchAuditHandler_InvalidDate(t *testing.T) {
	handler := SearchAuditHandler(&mockAuditSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/audit?from=yesterday", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestSearchAuditHandler_InvalidPagination(t *testing.T) {
	handler := SearchAuditHandler(&mockAuditSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/audit?page=0", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
