package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"problems-service/internal/config"
	"problems-service/internal/logging"
	"problems-service/internal/models"
	"problems-service/internal/notify"
	"problems-service/internal/problems"
	"problems-service/internal/service"
	"problems-service/internal/zabbix"
)

type stubService struct {
	listRecords []models.ProblemRecord
	listErr     error
	lastFilter  zabbix.ProblemFilter

	submitRec  models.UpdateRecord
	submitErr  error
	lastIntent models.UpdateIntent
	lastUser   string

	exportBlob string
	exportErr  error
	exportAcks bool

	execValue string
	execErr   error
}

func (s *stubService) ListProblems(_ context.Context, filter zabbix.ProblemFilter) ([]models.ProblemRecord, error) {
	s.lastFilter = filter
	return s.listRecords, s.listErr
}

func (s *stubService) AckTimeline(_ context.Context, eventID string) ([]problems.AckDisplay, error) {
	return []problems.AckDisplay{{User: "Alice", Time: "2023-11-14 22:13:20"}}, nil
}

func (s *stubService) SubmitUpdate(_ context.Context, _ string, intent models.UpdateIntent, user string) (models.UpdateRecord, error) {
	s.lastIntent = intent
	s.lastUser = user
	return s.submitRec, s.submitErr
}

func (s *stubService) ExportCSV(_ context.Context, filter zabbix.ProblemFilter, withAcknowledges bool) (string, error) {
	s.lastFilter = filter
	s.exportAcks = withAcknowledges
	return s.exportBlob, s.exportErr
}

func (s *stubService) ListUpdates(_ context.Context, _ string, _, _ int) ([]models.UpdateRecord, int, error) {
	return nil, 0, nil
}

func (s *stubService) Scripts() map[string]string {
	return map[string]string{"Create Ticket": "5"}
}

func (s *stubService) RefreshScripts(_ context.Context) error { return nil }

func (s *stubService) ExecuteScript(_ context.Context, _, _, _ string) (string, error) {
	return s.execValue, s.execErr
}

func testRouter(t *testing.T, svc ProblemService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger, err := logging.New(t.TempDir(), "error")
	require.NoError(t, err)

	cfg := config.Config{}
	cfg.API.BasePath = "/api/v0"
	return NewRouter(svc, notify.NewHub(logger), logger, cfg)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListProblemsPassesFilter(t *testing.T) {
	svc := &stubService{listRecords: []models.ProblemRecord{{EventID: "9001"}}}
	router := testRouter(t, svc)

	w := doJSON(t, router, http.MethodGet, "/api/v0/problems?severity=4&severity=5&host=web-01", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"4", "5"}, svc.lastFilter.Severities)
	assert.Equal(t, "web-01", svc.lastFilter.Host)

	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
}

func TestListProblemsBackendFailure(t *testing.T) {
	svc := &stubService{listErr: errors.New("backend down")}
	router := testRouter(t, svc)

	w := doJSON(t, router, http.MethodGet, "/api/v0/problems", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestSubmitUpdateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"missing user", `{"message":"hi"}`, nil, http.StatusBadRequest},
		{"malformed body", `{`, nil, http.StatusBadRequest},
		{"empty intent", `{"user":"Alice"}`, problems.ErrEmptyUpdate, http.StatusUnprocessableEntity},
		{"conflicting intent", `{"user":"Alice","suppress":true,"unsuppress":true}`, problems.ErrConflictingIntent, http.StatusUnprocessableEntity},
		{"blank acting user", `{"user":" ","message":"hi"}`, service.ErrMissingActingUser, http.StatusUnprocessableEntity},
		{"backend failure", `{"user":"Alice","message":"hi"}`, errors.New("rpc failed"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{submitErr: tt.err}
			router := testRouter(t, svc)

			w := doJSON(t, router, http.MethodPost, "/api/v0/problems/9001/update", tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSubmitUpdateReturnsRecord(t *testing.T) {
	svc := &stubService{submitRec: models.UpdateRecord{EventID: "9001", ActionMask: 7, Status: models.UpdateStatusSucceeded}}
	router := testRouter(t, svc)

	w := doJSON(t, router, http.MethodPost, "/api/v0/problems/9001/update", `{"user":"Alice","message":"done","close":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "Alice", svc.lastUser)
	assert.True(t, svc.lastIntent.Close)

	var rec models.UpdateRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, 7, rec.ActionMask)
	assert.Equal(t, models.UpdateStatusSucceeded, rec.Status)
}

func TestExportCsvHeaders(t *testing.T) {
	svc := &stubService{exportBlob: "Severity,Time\n"}
	router := testRouter(t, svc)

	w := doJSON(t, router, http.MethodGet, "/api/v0/problems/export?mode=acknowledges", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.True(t, svc.exportAcks)
	assert.Equal(t, "attachment; filename=problems.csv", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Severity,Time\n", w.Body.String())
}

func TestExportCsvNoDataWarns(t *testing.T) {
	svc := &stubService{exportErr: problems.ErrNoData}
	router := testRouter(t, svc)

	w := doJSON(t, router, http.MethodGet, "/api/v0/problems/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "There is no data to export.", resp["warning"])
}

func TestExecuteScriptUnknownName(t *testing.T) {
	svc := &stubService{execErr: zabbix.ErrUnknownScript}
	router := testRouter(t, svc)

	w := doJSON(t, router, http.MethodPost, "/api/v0/problems/9001/scripts/Reboot", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	router := testRouter(t, &stubService{})

	w := doJSON(t, router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
