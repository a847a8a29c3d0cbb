// Package audit records state changes after their transaction commits.
// Recording is best-effort: failures are logged and never surface to callers.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	auditEntity "backoffice.GO/model/entity/audit"
)

// Actor identifies who performed an operation and from where.
type Actor struct {
	UserID    *uint
	Username  string
	IP        string
	RequestID string
}

// System is the actor for scheduled and CLI-driven work.
func System() Actor {
	return Actor{Username: "system"}
}

type Entry struct {
	Action      auditEntity.Action
	Model       string
	ObjectID    string
	Description string
	Data        map[string]interface{}
}

// Sink receives every persisted audit log, e.g. a pub/sub channel or event stream.
type Sink interface {
	Publish(ctx context.Context, log *auditEntity.AuditLog) error
	Close() error
}

type Recorder struct {
	db     *gorm.DB
	logger *zap.Logger
	sinks  []Sink
	now    func() time.Time
}

func NewRecorder(db *gorm.DB, logger *zap.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{db: db, logger: logger, sinks: sinks, now: time.Now}
}

// Record persists entries for actor. Call it after the business transaction commits.
func (r *Recorder) Record(ctx context.Context, actor Actor, entries ...Entry) {
	if r == nil || len(entries) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	logs := make([]*auditEntity.AuditLog, 0, len(entries))
	for _, e := range entries {
		logs = append(logs, &auditEntity.AuditLog{
			UserID:      actor.UserID,
			Username:    actor.Username,
			Action:      e.Action,
			Model:       e.Model,
			ObjectID:    e.ObjectID,
			Description: e.Description,
			Data:        MaskSensitive(e.Data),
			IPAddress:   actor.IP,
			RequestID:   actor.RequestID,
			CreatedAt:   r.now(),
		})
	}
	if err := r.db.WithContext(ctx).Create(&logs).Error; err != nil {
		r.logger.Error("audit write failed", zap.Error(err), zap.Int("entries", len(logs)))
		return
	}
	for _, s := range r.sinks {
		for _, l := range logs {
			if err := s.Publish(ctx, l); err != nil {
				r.logger.Warn("audit sink publish failed", zap.Error(err), zap.Uint("audit_id", l.ID))
			}
		}
	}
}

// Close releases every sink.
func (r *Recorder) Close() error {
	var first error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ObjectID formats a numeric primary key for Entry.ObjectID.
func ObjectID(id uint) string {
	return fmt.Sprintf("%d", id)
}
