/*
handlers_test.go - HTTP tests for the settlement API

Tests for:
- Remittance generation end to end
- Work-log listing, filter validation and derived status
- Ledger maintenance routes and their error statuses
- Reused identifiers answering 409 on every store
- Storage failures never leaking internals
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/logging"
	"github.com/warp/settlement-engine/store/memory"
	"github.com/warp/settlement-engine/store/sqlite"
)

type testServer struct {
	t      *testing.T
	store  *memory.Memory
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	store := memory.New()
	h := NewHandler(store, store, logging.Discard())
	return &testServer{t: t, store: store, router: NewRouter(h, nil)}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) mustDo(method, path, body string, status int) *httptest.ResponseRecorder {
	rec := s.do(method, path, body)
	require.Equal(s.t, status, rec.Code, rec.Body.String())
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// seed creates u1 with work-log w1 worth 15.00.
func (s *testServer) seed() {
	s.mustDo("POST", "/api/v1/users", `{"id":"u1","email":"u1@example.com","full_name":"Ada"}`, http.StatusCreated)
	s.mustDo("POST", "/api/v1/worklogs", `{"id":"w1","user_id":"u1"}`, http.StatusCreated)
	s.mustDo("POST", "/api/v1/worklogs/w1/segments", `{"minutes":30}`, http.StatusCreated)
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

func TestGenerateAndList(t *testing.T) {
	// GIVEN: one user owed 15.00
	s := newTestServer(t)
	s.seed()

	list := decode[WorkLogListResponse](t, s.mustDo("GET", "/api/v1/settlements/list-all-worklogs", "", http.StatusOK))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, WorkLogEntryDTO{WorkLogID: "w1", UserID: "u1", Amount: "15.00", RemittanceStatus: "UNREMITTED"}, list.Data[0])

	// WHEN
	gen := decode[GenerateRemittancesResponse](t, s.mustDo("POST", "/api/v1/settlements/generate-remittances-for-all-users", "", http.StatusOK))

	// THEN
	assert.Equal(t, GenerateRemittancesResponse{Status: "ok", Generated: 1, Failed: 0}, gen)

	list = decode[WorkLogListResponse](t, s.mustDo("GET", "/api/v1/settlements/list-all-worklogs?remittanceStatus=REMITTED", "", http.StatusOK))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "0.00", list.Data[0].Amount)
	assert.Equal(t, "REMITTED", list.Data[0].RemittanceStatus)

	list = decode[WorkLogListResponse](t, s.mustDo("GET", "/api/v1/settlements/list-all-worklogs?remittanceStatus=UNREMITTED", "", http.StatusOK))
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Data)
}

func TestGenerate_EmptyLedger(t *testing.T) {
	s := newTestServer(t)

	gen := decode[GenerateRemittancesResponse](t, s.mustDo("POST", "/api/v1/settlements/generate-remittances-for-all-users", "", http.StatusOK))

	assert.Equal(t, "ok", gen.Status)
	assert.Equal(t, 0, gen.Generated)
}

func TestList_EmptyLedgerRendersEmptyArray(t *testing.T) {
	s := newTestServer(t)

	rec := s.mustDo("GET", "/api/v1/settlements/list-all-worklogs", "", http.StatusOK)

	assert.JSONEq(t, `{"data":[],"count":0}`, rec.Body.String())
}

func TestList_NewWorkFlipsStatus(t *testing.T) {
	s := newTestServer(t)
	s.seed()
	s.mustDo("POST", "/api/v1/settlements/generate-remittances-for-all-users", "", http.StatusOK)

	// WHEN: more work arrives after payment
	s.mustDo("POST", "/api/v1/worklogs/w1/adjustments", `{"amount":"2.50","reason":"bonus"}`, http.StatusCreated)

	// THEN
	list := decode[WorkLogListResponse](t, s.mustDo("GET", "/api/v1/settlements/list-all-worklogs?remittanceStatus=UNREMITTED", "", http.StatusOK))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "2.50", list.Data[0].Amount)
}

// untouchable panics on any store access.
type untouchable struct {
	ledger.TxStore
	ledger.UserDirectory
}

func TestList_InvalidFilterRejectedBeforeStoreAccess(t *testing.T) {
	h := NewHandler(untouchable{}, untouchable{}, logging.Discard())
	router := NewRouter(h, nil)

	for _, query := range []string{"remittanceStatus=PAID", "remittanceStatus=remitted", "remittanceStatus="} {
		t.Run(query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/settlements/list-all-worklogs?"+query, nil))

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			body := decode[ErrorResponse](t, rec)
			assert.Contains(t, body.Error, "REMITTED, UNREMITTED")
		})
	}
}

// failingStore reports a storage failure carrying a secret in its cause.
type failingStore struct {
	*memory.Memory
}

var errSecret = errors.New("dial tcp db.internal:5432: password=hunter2 rejected")

func (failingStore) ListWorkLogs(context.Context) ([]ledger.WorkLog, error) {
	return nil, ledger.Storage("list worklogs", errSecret)
}

func (failingStore) ListUserIDs(context.Context) ([]ledger.UserID, error) {
	return nil, ledger.Storage("list users", errSecret)
}

func TestStorageFailureHidesCause(t *testing.T) {
	store := failingStore{memory.New()}
	router := NewRouter(NewHandler(store, store, logging.Discard()), nil)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/v1/settlements/list-all-worklogs"},
		{"POST", "/api/v1/settlements/generate-remittances-for-all-users"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code, tc.path)
		assert.NotContains(t, rec.Body.String(), "hunter2")
		assert.NotContains(t, rec.Body.String(), "db.internal")
		assert.Equal(t, "Internal server error", decode[ErrorResponse](t, rec).Error)
	}
}

// =============================================================================
// LEDGER MAINTENANCE
// =============================================================================

func TestWorkLogDetail(t *testing.T) {
	s := newTestServer(t)
	s.seed()
	s.mustDo("POST", "/api/v1/worklogs/w1/adjustments", `{"amount":-5,"reason":"overlap"}`, http.StatusCreated)

	detail := decode[WorkLogDetailDTO](t, s.mustDo("GET", "/api/v1/worklogs/w1", "", http.StatusOK))

	assert.Equal(t, "10.00", detail.Earned)
	assert.Equal(t, "0.00", detail.Remitted)
	assert.Equal(t, "10.00", detail.Amount)
	assert.Equal(t, "UNREMITTED", detail.RemittanceStatus)
}

func TestMaintenanceErrors(t *testing.T) {
	s := newTestServer(t)
	s.seed()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown worklog", "GET", "/api/v1/worklogs/nope", "", http.StatusNotFound},
		{"worklog for unknown user", "POST", "/api/v1/worklogs", `{"user_id":"ghost"}`, http.StatusNotFound},
		{"worklog without user", "POST", "/api/v1/worklogs", `{}`, http.StatusBadRequest},
		{"malformed body", "POST", "/api/v1/users", `{`, http.StatusBadRequest},
		{"negative minutes", "POST", "/api/v1/worklogs/w1/segments", `{"minutes":-1}`, http.StatusBadRequest},
		{"missing minutes", "POST", "/api/v1/worklogs/w1/segments", `{}`, http.StatusBadRequest},
		{"segment on unknown worklog", "POST", "/api/v1/worklogs/nope/segments", `{"minutes":1}`, http.StatusNotFound},
		{"missing amount", "POST", "/api/v1/worklogs/w1/adjustments", `{"reason":"x"}`, http.StatusBadRequest},
		{"bad amount", "POST", "/api/v1/worklogs/w1/adjustments", `{"amount":"ten"}`, http.StatusBadRequest},
		{"unknown remittance", "GET", "/api/v1/remittances/nope", "", http.StatusNotFound},
		{"delete unknown user", "DELETE", "/api/v1/users/nope", "", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestReusedIDIsConflict(t *testing.T) {
	stores := map[string]func(t *testing.T) http.Handler{
		"memory": func(t *testing.T) http.Handler {
			m := memory.New()
			return NewRouter(NewHandler(m, m, logging.Discard()), nil)
		},
		"sqlite": func(t *testing.T) http.Handler {
			db, err := sqlite.New(":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			return NewRouter(NewHandler(db, db, logging.Discard()), nil)
		},
	}
	for name, newRouter := range stores {
		t.Run(name, func(t *testing.T) {
			s := &testServer{t: t, router: newRouter(t)}
			s.seed()
			s.mustDo("POST", "/api/v1/users", `{"id":"u2","email":"u2@example.com","full_name":"Bo"}`, http.StatusCreated)

			// WHEN: w1 is posted again for another user
			rec := s.mustDo("POST", "/api/v1/worklogs", `{"id":"w1","user_id":"u2"}`, http.StatusConflict)
			assert.Contains(t, decode[ErrorResponse](t, rec).Error, "already exists")

			// THEN: the original work-log keeps its owner and earnings
			detail := decode[WorkLogDetailDTO](t, s.mustDo("GET", "/api/v1/worklogs/w1", "", http.StatusOK))
			assert.Equal(t, "u1", detail.UserID)
			assert.Equal(t, "15.00", detail.Amount)
		})
	}
}

func TestRemittanceLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.seed()
	s.mustDo("POST", "/api/v1/settlements/generate-remittances-for-all-users", "", http.StatusOK)

	remittances := decode[[]RemittanceDTO](t, s.mustDo("GET", "/api/v1/remittances", "", http.StatusOK))
	require.Len(t, remittances, 1)
	assert.Equal(t, "SUCCESS", remittances[0].Status)
	assert.Equal(t, "u1", remittances[0].UserID)

	id := remittances[0].ID
	detail := decode[RemittanceDTO](t, s.mustDo("GET", "/api/v1/remittances/"+id, "", http.StatusOK))
	require.Len(t, detail.Items, 1)
	assert.Equal(t, RemittanceItemDTO{ID: detail.Items[0].ID, WorkLogID: "w1", Amount: "15.00"}, detail.Items[0])

	// WHEN: the remittance is deleted, the work-log is owed again
	s.mustDo("DELETE", "/api/v1/remittances/"+id, "", http.StatusNoContent)

	list := decode[WorkLogListResponse](t, s.mustDo("GET", "/api/v1/settlements/list-all-worklogs", "", http.StatusOK))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "15.00", list.Data[0].Amount)
	assert.Equal(t, "UNREMITTED", list.Data[0].RemittanceStatus)
}

func TestDeleteCascades(t *testing.T) {
	s := newTestServer(t)
	s.seed()
	s.mustDo("POST", "/api/v1/settlements/generate-remittances-for-all-users", "", http.StatusOK)

	s.mustDo("DELETE", "/api/v1/worklogs/w1", "", http.StatusNoContent)
	s.mustDo("GET", "/api/v1/worklogs/w1", "", http.StatusNotFound)

	s.mustDo("DELETE", "/api/v1/users/u1", "", http.StatusNoContent)
	remittances := decode[[]RemittanceDTO](t, s.mustDo("GET", "/api/v1/remittances", "", http.StatusOK))
	assert.Empty(t, remittances)
}

func TestCreateUserGeneratesID(t *testing.T) {
	s := newTestServer(t)

	user := decode[UserDTO](t, s.mustDo("POST", "/api/v1/users", `{"email":"x@example.com"}`, http.StatusCreated))

	assert.NotEmpty(t, user.ID)
	_, err := s.store.GetUser(context.Background(), ledger.UserID(user.ID))
	assert.NoError(t, err)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	rec := s.mustDo("GET", "/healthz", "", http.StatusOK)

	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}
