package zabbix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"problems-service/internal/logging"
	"problems-service/internal/problems"
)

type rpcCall struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
	Auth   *string                `json:"auth"`
	ID     int                    `json:"id"`
}

// fakeBackend records every JSON-RPC call and answers from a canned
// method -> result table.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []rpcCall
	results map[string]interface{}
	errors  map[string]*APIError
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		results: map[string]interface{}{"user.login": "session-token"},
		errors:  map[string]*APIError{},
	}
}

func (f *fakeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var call rpcCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))

		f.mu.Lock()
		f.calls = append(f.calls, call)
		result, ok := f.results[call.Method]
		apiErr := f.errors[call.Method]
		f.mu.Unlock()

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": call.ID}
		switch {
		case apiErr != nil:
			resp["error"] = apiErr
		case ok:
			resp["result"] = result
		default:
			resp["result"] = []interface{}{}
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func (f *fakeBackend) callsFor(method string) []rpcCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rpcCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func testClient(t *testing.T, backend *fakeBackend) *Client {
	t.Helper()
	srv := httptest.NewServer(backend.handler(t))
	t.Cleanup(srv.Close)

	logger, err := logging.New(t.TempDir(), "error")
	require.NoError(t, err)
	return NewClient(srv.URL, "api", "secret", 5*time.Second, logger)
}

func TestLoginRunsOncePerSession(t *testing.T) {
	backend := newFakeBackend()
	client := testClient(t, backend)
	ctx := context.Background()

	_, err := client.GetScripts(ctx)
	require.NoError(t, err)
	_, err = client.GetScripts(ctx)
	require.NoError(t, err)

	logins := backend.callsFor("user.login")
	require.Len(t, logins, 1)
	assert.Nil(t, logins[0].Auth)
	assert.Equal(t, "api", logins[0].Params["username"])
	assert.Equal(t, "secret", logins[0].Params["password"])

	for _, call := range backend.callsFor("script.get") {
		require.NotNil(t, call.Auth)
		assert.Equal(t, "session-token", *call.Auth)
	}
}

func TestGetProblemsMapsWireShape(t *testing.T) {
	backend := newFakeBackend()
	backend.results["problem.get"] = []map[string]interface{}{
		{
			"eventid":      "9001",
			"name":         "Disk full",
			"severity":     "4",
			"value":        "1",
			"manual_close": "0",
			"acknowledged": "1",
			"clock":        "1700000000",
			"r_eventid":    "9105",
			"r_clock":      "1700003600",
			"opdata":       "97%",
			"acknowledges": []map[string]interface{}{
				{"acknowledgeid": "77", "userid": "3", "message": "looking", "action": "4", "clock": "1700000100"},
			},
			"tags":  []map[string]interface{}{{"tag": "env", "value": "prod"}},
			"hosts": []map[string]interface{}{{"hostid": "12", "host": "web-01", "name": "Web 01"}},
		},
		{
			"eventid":  "9002",
			"name":     "High load",
			"severity": "2",
			"value":    "1",
			"clock":    "1700000000",
			"hosts":    []map[string]interface{}{{"hostid": "13", "host": "db-01"}},
		},
	}
	client := testClient(t, backend)

	records, err := client.GetProblems(context.Background(), ProblemFilter{
		Severities: []string{"2", "4"},
		Host:       "web-01",
	})
	require.NoError(t, err)
	require.Len(t, records, 1, "host filter drops db-01")

	rec := records[0]
	assert.Equal(t, "9001", rec.EventID)
	assert.Equal(t, "web-01", rec.Host)
	assert.Equal(t, "12", rec.HostID)
	assert.Equal(t, int64(1700000000), rec.Timestamp)
	assert.Equal(t, int64(1700003600), rec.RecoveryTimestamp)
	assert.Equal(t, "1h 0m", rec.Duration)
	assert.False(t, rec.Resolved(), "value 1 and manual_close 0 stay active")
	require.Len(t, rec.Acknowledges, 1)
	assert.Equal(t, "2023-11-14 22:15:00", rec.Acknowledges[0].Time)

	calls := backend.callsFor("problem.get")
	require.Len(t, calls, 1)
	assert.Equal(t, []interface{}{"2", "4"}, calls[0].Params["severities"])
	assert.Equal(t, "extend", calls[0].Params["selectAcknowledges"])
	assert.Equal(t, true, calls[0].Params["recent"])
}

func TestGetProblemsOmitsSeveritiesWhenUnfiltered(t *testing.T) {
	backend := newFakeBackend()
	client := testClient(t, backend)

	_, err := client.GetProblems(context.Background(), ProblemFilter{})
	require.NoError(t, err)

	calls := backend.callsFor("problem.get")
	require.Len(t, calls, 1)
	_, present := calls[0].Params["severities"]
	assert.False(t, present)
}

func TestGetEventAcknowledges(t *testing.T) {
	backend := newFakeBackend()
	backend.results["event.get"] = []map[string]interface{}{
		{
			"eventid": "9001",
			"acknowledges": []map[string]interface{}{
				{"acknowledgeid": "1", "userid": "3", "name": "Ada", "surname": "Lovelace", "message": "on it", "action": "6", "clock": "1700000000"},
				{"acknowledgeid": "2", "userid": "3", "action": "1", "clock": "1700000100"},
			},
		},
	}
	client := testClient(t, backend)

	entries, err := client.GetEventAcknowledges(context.Background(), "9001")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Ada", entries[0].Name)
	assert.Equal(t, "2023-11-14 22:13:20", entries[0].Time)
	assert.Equal(t, "1", entries[1].Action)
}

func TestGetEventAcknowledgesUnknownEvent(t *testing.T) {
	backend := newFakeBackend()
	backend.results["event.get"] = []map[string]interface{}{}
	client := testClient(t, backend)

	_, err := client.GetEventAcknowledges(context.Background(), "404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAcknowledgeEventParams(t *testing.T) {
	backend := newFakeBackend()
	backend.results["event.acknowledge"] = map[string]interface{}{"eventids": []string{"9001"}}
	client := testClient(t, backend)
	ctx := context.Background()

	err := client.AcknowledgeEvent(ctx, "9001", problems.UpdateParams{
		Action:  36,
		Message: `{"grafanaUser":"Alice","message":"quiet"}`,
	})
	require.NoError(t, err)

	err = client.AcknowledgeEvent(ctx, "9001", problems.UpdateParams{
		Action:        36,
		Message:       `{"grafanaUser":"Alice","message":"quiet"}`,
		SuppressUntil: 1700000000,
	})
	require.NoError(t, err)

	calls := backend.callsFor("event.acknowledge")
	require.Len(t, calls, 2)

	_, present := calls[0].Params["suppress_until"]
	assert.False(t, present, "zero suppress_until is omitted")
	assert.Equal(t, float64(36), calls[0].Params["action"])
	assert.Equal(t, []interface{}{"9001"}, calls[0].Params["eventids"])

	assert.Equal(t, float64(1700000000), calls[1].Params["suppress_until"])
}

func TestBackendErrorSurfacesAsAPIError(t *testing.T) {
	backend := newFakeBackend()
	backend.errors["event.acknowledge"] = &APIError{
		Code:    -32602,
		Message: "Invalid params.",
		Data:    "Incorrect value for field action",
	}
	client := testClient(t, backend)

	err := client.AcknowledgeEvent(context.Background(), "9001", problems.UpdateParams{Action: 4, Message: "x"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, -32602, apiErr.Code)
}

func TestExecuteScriptRejectsFailureResponse(t *testing.T) {
	backend := newFakeBackend()
	backend.results["script.execute"] = map[string]interface{}{"response": "failed", "value": "no route to host"}
	client := testClient(t, backend)

	out, err := client.ExecuteScript(context.Background(), "5", "9001", "")
	require.Error(t, err)
	assert.Equal(t, "no route to host", out)
}

func TestFormatDuration(t *testing.T) {
	start := int64(1700000000)
	assert.Equal(t, "45m", formatDuration(start, start+45*60))
	assert.Equal(t, "3h 5m", formatDuration(start, start+3*3600+300))
	assert.Equal(t, "2d 1h", formatDuration(start, start+49*3600))
	assert.Equal(t, "", formatDuration(0, start))
	assert.Equal(t, "", formatDuration(start, start-1))
}
