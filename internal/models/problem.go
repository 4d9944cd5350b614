package models

// Tag is one key/value label attached to a problem.
type Tag struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// AcknowledgeEntry is one historical update attached to a problem. The
// message field is opaque: plain text for entries written by other tools,
// or a JSON object carrying attribution for entries written through this
// service. Numeric fields arrive string-typed from the backend.
type AcknowledgeEntry struct {
	AcknowledgeID string `json:"acknowledgeid"`
	UserID        string `json:"userid,omitempty"`
	Name          string `json:"name,omitempty"`
	Surname       string `json:"surname,omitempty"`
	Message       string `json:"message,omitempty"`
	Action        string `json:"action,omitempty"`
	OldSeverity   string `json:"old_severity,omitempty"`
	NewSeverity   string `json:"new_severity,omitempty"`
	SuppressUntil string `json:"suppress_until,omitempty"`
	Time          string `json:"time,omitempty"`
}

// ProblemRecord is one alert instance as delivered by the monitoring
// backend. Records are fetched read-only per refresh cycle and replaced
// wholesale on the next one; nothing here is persisted locally.
type ProblemRecord struct {
	EventID           string             `json:"eventid"`
	Name              string             `json:"name"`
	HostID            string             `json:"hostid,omitempty"`
	Host              string             `json:"host,omitempty"`
	Severity          string             `json:"severity"`
	Value             string             `json:"value"`
	ManualClose       string             `json:"manual_close,omitempty"`
	Acknowledged      string             `json:"acknowledged,omitempty"`
	Timestamp         int64              `json:"timestamp,omitempty"`
	RecoveryEventID   string             `json:"r_eventid,omitempty"`
	RecoveryTimestamp int64              `json:"r_timestamp,omitempty"`
	Duration          string             `json:"duration,omitempty"`
	OpData            string             `json:"opdata,omitempty"`
	Acknowledges      []AcknowledgeEntry `json:"acknowledges,omitempty"`
	Tags              []Tag              `json:"tags,omitempty"`
	Datasource        string             `json:"datasource,omitempty"`
}

// Resolved reports whether the record should render as RESOLVED: either
// the value flag indicates resolution or manual close is set.
func (p ProblemRecord) Resolved() bool {
	return p.Value == "0" || p.ManualClose == "1"
}

// Script is one named server-side action ("Create Ticket", "Send Email", ...)
// exposed by the monitoring backend.
type Script struct {
	ScriptID string `json:"scriptid"`
	Name     string `json:"name"`
	Command  string `json:"command,omitempty"`
}
