package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"problems-service/internal/db"
	"problems-service/internal/kafka"
	"problems-service/internal/logging"
	"problems-service/internal/models"
	"problems-service/internal/notify"
	"problems-service/internal/problems"
	"problems-service/internal/zabbix"
)

// ErrMissingActingUser rejects an update without operator identity; the
// service never invents one.
var ErrMissingActingUser = errors.New("acting user is required")

// Service orchestrates the problems surface: listing, timelines, update
// submission with audit, CSV export, and scripted actions.
type Service struct {
	zbx      *zabbix.Client
	scripts  *zabbix.ScriptRegistry
	store    *db.DB
	producer *kafka.Producer
	notifier *notify.Notifier
	decoder  *problems.Decoder
	exporter *problems.Exporter
	logger   *logging.Logger
}

// New constructs the Service. producer may be nil when the audit stream is
// disabled.
func New(
	zbx *zabbix.Client,
	scripts *zabbix.ScriptRegistry,
	store *db.DB,
	producer *kafka.Producer,
	notifier *notify.Notifier,
	location *time.Location,
	logger *logging.Logger,
) *Service {
	return &Service{
		zbx:      zbx,
		scripts:  scripts,
		store:    store,
		producer: producer,
		notifier: notifier,
		decoder:  problems.NewDecoder(location),
		exporter: problems.NewExporter(location),
		logger:   logger,
	}
}

// ListProblems fetches the current problem set from the backend.
func (s *Service) ListProblems(ctx context.Context, filter zabbix.ProblemFilter) ([]models.ProblemRecord, error) {
	return s.zbx.GetProblems(ctx, filter)
}

// AckTimeline returns the decoded acknowledge history of one event.
func (s *Service) AckTimeline(ctx context.Context, eventID string) ([]problems.AckDisplay, error) {
	entries, err := s.zbx.GetEventAcknowledges(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.decoder.DecodeAll(entries), nil
}

// SubmitUpdate encodes one operator intent, submits it to the backend, and
// records the outcome in the audit trail. Validation failures surface
// before any backend call; backend failures are audited and notified.
func (s *Service) SubmitUpdate(ctx context.Context, eventID string, intent models.UpdateIntent, actingUser string) (models.UpdateRecord, error) {
	if strings.TrimSpace(actingUser) == "" {
		s.notifier.Warning("Update rejected", "No acting user supplied")
		return models.UpdateRecord{}, ErrMissingActingUser
	}

	intent.Normalize()
	params, err := problems.EncodeUpdate(intent, actingUser)
	if err != nil {
		if problems.IsValidationError(err) {
			s.notifier.Warning("Update rejected", err.Error())
		}
		return models.UpdateRecord{}, err
	}

	rec := models.UpdateRecord{
		ID:            uuid.New(),
		EventID:       eventID,
		ActingUser:    actingUser,
		ActionMask:    params.Action,
		Message:       params.Message,
		SuppressUntil: params.SuppressUntil,
		Status:        models.UpdateStatusSucceeded,
		CreatedAt:     time.Now().UTC(),
	}

	callErr := s.zbx.AcknowledgeEvent(ctx, eventID, params)
	if callErr != nil {
		rec.Status = models.UpdateStatusFailed
		rec.Error = callErr.Error()
	}

	// The audit row and the stream event are best effort: they never turn
	// a successful backend update into a user-visible failure.
	if err := s.store.CreateUpdateRecord(ctx, rec); err != nil {
		s.logger.Errorf("Failed to audit update %s: %v", rec.ID, err)
	}
	if s.producer != nil {
		if err := s.producer.PublishUpdate(ctx, rec); err != nil {
			s.logger.Errorf("Failed to publish update %s: %v", rec.ID, err)
		}
	}

	if callErr != nil {
		s.notifier.Error("Update failed", fmt.Sprintf("Problem %s: %v", eventID, callErr))
		return rec, fmt.Errorf("update problem %s: %w", eventID, callErr)
	}

	s.notifier.Success("Problem updated", fmt.Sprintf("Problem %s updated by %s", eventID, actingUser))
	return rec, nil
}

// ExportCSV serializes the filtered problem set. An empty set returns
// problems.ErrNoData after emitting a warning; no file is produced.
func (s *Service) ExportCSV(ctx context.Context, filter zabbix.ProblemFilter, withAcknowledges bool) (string, error) {
	records, err := s.zbx.GetProblems(ctx, filter)
	if err != nil {
		s.notifier.Error("Export failed", err.Error())
		return "", err
	}

	blob, err := s.exporter.Export(records, withAcknowledges)
	if errors.Is(err, problems.ErrNoData) {
		s.notifier.Warning("No Data", "There is no data to export.")
		return "", err
	}
	if err != nil {
		s.notifier.Error("Export failed", err.Error())
		return "", err
	}

	s.notifier.Success("CSV Exported", fmt.Sprintf("Exported %d problems.", len(records)))
	return blob, nil
}

// ListUpdates returns persisted audit entries, newest first.
func (s *Service) ListUpdates(ctx context.Context, eventID string, limit, offset int) ([]models.UpdateRecord, int, error) {
	return s.store.ListUpdateRecords(ctx, eventID, limit, offset)
}

// Scripts returns the resolved named-script capability map.
func (s *Service) Scripts() map[string]string {
	return s.scripts.Snapshot()
}

// RefreshScripts re-resolves the capability map and reports missing names.
func (s *Service) RefreshScripts(ctx context.Context) error {
	missing, err := s.scripts.Resolve(ctx, s.zbx)
	if err != nil {
		s.notifier.Error("Script Error", "Failed to fetch scripts from the backend")
		return err
	}
	if len(missing) > 0 {
		s.notifier.Warning("Missing Scripts", "Scripts not found: "+strings.Join(missing, ", "))
	}
	return nil
}

// ExecuteScript runs one named backend action against an event. An
// unresolved name is a configuration error, not a silent no-op.
func (s *Service) ExecuteScript(ctx context.Context, eventID, name, manualInput string) (string, error) {
	scriptID, err := s.scripts.Lookup(name)
	if err != nil {
		s.notifier.Error("Script Error", err.Error())
		return "", err
	}

	value, err := s.zbx.ExecuteScript(ctx, scriptID, eventID, manualInput)
	if err != nil {
		s.notifier.Error("Script Error", fmt.Sprintf("%s failed: %v", name, err))
		return "", err
	}

	s.notifier.Success("Success", name+" executed")
	return value, nil
}
