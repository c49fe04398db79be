package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/schoolhub/membership/internal/models"
)

const (
	ActionSchoolRegistered  = "school.registered"
	ActionSchoolApproved    = "school.approved"
	ActionSchoolRejected    = "school.rejected"
	ActionOwnerRepaired     = "school.owner_repaired"
	ActionMemberAdded       = "member.added"
	ActionMemberRoleChanged = "member.role_changed"
	ActionMemberStatus      = "member.status_changed"
	ActionMemberGranted     = "member.permissions_granted"
	ActionMemberRemoved     = "member.removed"
)

type Entry struct {
	SchoolID     string
	ActorID      string
	Action       string
	ResourceType string
	ResourceID   string
	Details      map[string]interface{}
}

// Logger appends entries to the audit trail.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) Log(ctx context.Context, entry Entry) error {
	details, _ := json.Marshal(entry.Details)

	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_logs (id, school_id, actor_id, action, resource_type, resource_id, details, request_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), models.StringPtr(entry.SchoolID), models.StringPtr(entry.ActorID), entry.Action,
		entry.ResourceType, models.StringPtr(entry.ResourceID), details,
		models.StringPtr(middleware.GetReqID(ctx)),
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

type Query struct {
	SchoolID  string
	Action    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

func (s *Service) List(ctx context.Context, q Query) ([]models.AuditLog, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	query := `SELECT id, school_id, actor_id, action, resource_type, resource_id, details, request_id, created_at
			  FROM audit_logs WHERE school_id = $1`
	args := []interface{}{q.SchoolID}
	argIdx := 2

	if q.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, q.Action)
		argIdx++
	}
	if q.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.StartDate)
		argIdx++
	}
	if q.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *q.EndDate)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.SchoolID, &l.ActorID, &l.Action, &l.ResourceType, &l.ResourceID, &l.Details, &l.RequestID, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// Discard drops every entry. Used when no audit database is configured.
type Discard struct{}

func (Discard) Log(context.Context, Entry) error { return nil }

// Record writes entry and only logs a failure; audit is best-effort.
func Record(ctx context.Context, l Logger, entry Entry) {
	if l == nil {
		return
	}
	if err := l.Log(ctx, entry); err != nil {
		slog.Warn("audit log write failed",
			"action", entry.Action,
			"school_id", entry.SchoolID,
			"resource_id", entry.ResourceID,
			"error", err,
		)
	}
}
