package zabbix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"problems-service/internal/logging"
	"problems-service/internal/models"
	"problems-service/internal/problems"
)

// Client speaks the monitoring backend's JSON-RPC 2.0 API. The session
// token is obtained lazily on the first authenticated call and cached.
type Client struct {
	url        string
	username   string
	password   string
	httpClient *http.Client
	logger     *logging.Logger

	mu     sync.Mutex
	token  string
	nextID int
}

// ProblemFilter narrows a problem listing. Empty fields mean no filtering.
type ProblemFilter struct {
	Severities []string
	Host       string
}

// APIError is a backend-reported failure, distinct from transport errors.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend api error %d: %s %s", e.Code, e.Message, e.Data)
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	Auth    *string     `json:"auth,omitempty"`
	ID      int         `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *APIError       `json:"error"`
	ID      int             `json:"id"`
}

// NewClient builds a client for the given endpoint. No call is made until
// the first request needs a session.
func NewClient(url, username, password string, timeout time.Duration, logger *logging.Logger) *Client {
	return &Client{
		url:        url,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		nextID:     1,
	}
}

// Login authenticates and caches the session token.
func (c *Client) Login(ctx context.Context) error {
	var token string
	params := map[string]string{"username": c.username, "password": c.password}
	if err := c.call(ctx, "user.login", params, false, &token); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	c.logger.Infof("Authenticated against backend at %s", c.url)
	return nil
}

func (c *Client) sessionToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	if err := c.Login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	token = c.token
	c.mu.Unlock()
	return token, nil
}

// call performs one JSON-RPC request and unmarshals its result.
func (c *Client) call(ctx context.Context, method string, params interface{}, authed bool, result interface{}) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	}

	if authed {
		token, err := c.sessionToken(ctx)
		if err != nil {
			return err
		}
		req.Auth = &token
	}

	c.mu.Lock()
	req.ID = c.nextID
	c.nextID++
	c.mu.Unlock()

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	httpReq.Header.Set("Content-Type", "application/json-rpc")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s call failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s call failed: unexpected status %d", method, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("unmarshal %s result: %w", method, err)
	}
	return nil
}

// Wire shapes: the backend types every number as a string.
type ackDTO struct {
	AcknowledgeID string `json:"acknowledgeid"`
	UserID        string `json:"userid"`
	Name          string `json:"name"`
	Surname       string `json:"surname"`
	Message       string `json:"message"`
	Action        string `json:"action"`
	OldSeverity   string `json:"old_severity"`
	NewSeverity   string `json:"new_severity"`
	SuppressUntil string `json:"suppress_until"`
	Clock         string `json:"clock"`
}

type hostDTO struct {
	HostID string `json:"hostid"`
	Host   string `json:"host"`
	Name   string `json:"name"`
}

type problemDTO struct {
	EventID      string       `json:"eventid"`
	Name         string       `json:"name"`
	Severity     string       `json:"severity"`
	Value        string       `json:"value"`
	ManualClose  string       `json:"manual_close"`
	Acknowledged string       `json:"acknowledged"`
	Clock        string       `json:"clock"`
	REventID     string       `json:"r_eventid"`
	RClock       string       `json:"r_clock"`
	OpData       string       `json:"opdata"`
	Acknowledges []ackDTO     `json:"acknowledges"`
	Tags         []models.Tag `json:"tags"`
	Hosts        []hostDTO    `json:"hosts"`
}

type eventDTO struct {
	EventID      string   `json:"eventid"`
	Acknowledges []ackDTO `json:"acknowledges"`
}

// GetProblems lists current problems with acknowledges, tags, and hosts.
func (c *Client) GetProblems(ctx context.Context, filter ProblemFilter) ([]models.ProblemRecord, error) {
	params := map[string]interface{}{
		"output":             "extend",
		"selectAcknowledges": "extend",
		"selectTags":         "extend",
		"selectHosts":        []string{"hostid", "host", "name"},
		"recent":             true,
		"sortfield":          "eventid",
		"sortorder":          "DESC",
	}
	if len(filter.Severities) > 0 {
		params["severities"] = filter.Severities
	}

	var dtos []problemDTO
	if err := c.call(ctx, "problem.get", params, true, &dtos); err != nil {
		return nil, fmt.Errorf("get problems: %w", err)
	}

	records := make([]models.ProblemRecord, 0, len(dtos))
	for _, dto := range dtos {
		rec := dto.toRecord(c.url)
		if filter.Host != "" && rec.Host != filter.Host {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetEventAcknowledges fetches the acknowledge history of one event in the
// order the backend delivers it (assumed chronological).
func (c *Client) GetEventAcknowledges(ctx context.Context, eventID string) ([]models.AcknowledgeEntry, error) {
	params := map[string]interface{}{
		"eventids":            []string{eventID},
		"output":              []string{"eventid"},
		"select_acknowledges": "extend",
	}

	var dtos []eventDTO
	if err := c.call(ctx, "event.get", params, true, &dtos); err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventID, err)
	}
	if len(dtos) == 0 {
		return nil, fmt.Errorf("event %s not found", eventID)
	}

	entries := make([]models.AcknowledgeEntry, 0, len(dtos[0].Acknowledges))
	for _, ack := range dtos[0].Acknowledges {
		entries = append(entries, ack.toEntry())
	}
	return entries, nil
}

// AcknowledgeEvent submits one update action for an event. SuppressUntil
// zero means the parameter is omitted (indefinite suppression).
func (c *Client) AcknowledgeEvent(ctx context.Context, eventID string, update problems.UpdateParams) error {
	params := map[string]interface{}{
		"eventids": []string{eventID},
		"message":  update.Message,
		"action":   update.Action,
	}
	if update.SuppressUntil > 0 {
		params["suppress_until"] = update.SuppressUntil
	}

	if err := c.call(ctx, "event.acknowledge", params, true, nil); err != nil {
		return fmt.Errorf("acknowledge event %s: %w", eventID, err)
	}
	return nil
}

// GetScripts lists the backend's named scripts.
func (c *Client) GetScripts(ctx context.Context) ([]models.Script, error) {
	params := map[string]interface{}{
		"output": []string{"scriptid", "name", "command"},
	}

	var scripts []models.Script
	if err := c.call(ctx, "script.get", params, true, &scripts); err != nil {
		return nil, fmt.Errorf("get scripts: %w", err)
	}
	return scripts, nil
}

type scriptResult struct {
	Response string `json:"response"`
	Value    string `json:"value"`
}

// ExecuteScript runs one backend script against an event, with optional
// manual input.
func (c *Client) ExecuteScript(ctx context.Context, scriptID, eventID, manualInput string) (string, error) {
	params := map[string]interface{}{
		"scriptid": scriptID,
		"eventid":  eventID,
	}
	if manualInput != "" {
		params["manualinput"] = manualInput
	}

	var result scriptResult
	if err := c.call(ctx, "script.execute", params, true, &result); err != nil {
		return "", fmt.Errorf("execute script %s: %w", scriptID, err)
	}
	if result.Response != "" && result.Response != "success" {
		return result.Value, fmt.Errorf("execute script %s: backend responded %q", scriptID, result.Response)
	}
	return result.Value, nil
}

func (a ackDTO) toEntry() models.AcknowledgeEntry {
	entry := models.AcknowledgeEntry{
		AcknowledgeID: a.AcknowledgeID,
		UserID:        a.UserID,
		Name:          a.Name,
		Surname:       a.Surname,
		Message:       a.Message,
		Action:        a.Action,
		OldSeverity:   a.OldSeverity,
		NewSeverity:   a.NewSeverity,
		SuppressUntil: a.SuppressUntil,
	}
	if clock := parseEpoch(a.Clock); clock > 0 {
		entry.Time = time.Unix(clock, 0).UTC().Format("2006-01-02 15:04:05")
	}
	return entry
}

func (p problemDTO) toRecord(datasource string) models.ProblemRecord {
	rec := models.ProblemRecord{
		EventID:           p.EventID,
		Name:              p.Name,
		Severity:          p.Severity,
		Value:             p.Value,
		ManualClose:       p.ManualClose,
		Acknowledged:      p.Acknowledged,
		Timestamp:         parseEpoch(p.Clock),
		RecoveryEventID:   p.REventID,
		RecoveryTimestamp: parseEpoch(p.RClock),
		OpData:            p.OpData,
		Tags:              p.Tags,
		Datasource:        datasource,
	}
	if len(p.Hosts) > 0 {
		rec.HostID = p.Hosts[0].HostID
		rec.Host = p.Hosts[0].Host
		if rec.Host == "" {
			rec.Host = p.Hosts[0].Name
		}
	}
	for _, ack := range p.Acknowledges {
		rec.Acknowledges = append(rec.Acknowledges, ack.toEntry())
	}
	rec.Duration = formatDuration(rec.Timestamp, rec.RecoveryTimestamp)
	return rec
}

func parseEpoch(raw string) int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// formatDuration renders the problem age, up to recovery when resolved.
func formatDuration(start, end int64) string {
	if start == 0 {
		return ""
	}
	if end == 0 {
		end = time.Now().Unix()
	}
	if end < start {
		return ""
	}

	d := time.Duration(end-start) * time.Second
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd %dh", int(d.Hours())/24, int(d.Hours())%24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	default:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
}
