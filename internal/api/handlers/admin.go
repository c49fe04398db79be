package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/schoolhub/membership/internal/audit"
	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
)

type AuditReader interface {
	List(ctx context.Context, q audit.Query) ([]models.AuditLog, error)
}

type AdminHandler struct {
	auditLog AuditReader
	gate     *auth.Gate
}

func NewAdminHandler(auditLog AuditReader, gate *auth.Gate) *AdminHandler {
	return &AdminHandler{auditLog: auditLog, gate: gate}
}

// AuditLogs lists the school's audit trail for members holding ViewSettings.
func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	sid := schoolID(r)
	if _, err := h.gate.RequirePermission(r.Context(), auth.IdentityFromContext(r.Context()), sid, permission.ViewSettings); err != nil {
		writeError(w, r, err)
		return
	}

	q := audit.Query{
		SchoolID: sid,
		Action:   r.URL.Query().Get("action"),
	}

	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if q.Limit <= 0 {
		q.Limit = 50
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			q.StartDate = &t
		}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			q.EndDate = &t
		}
	}

	logs, err := h.auditLog.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"audit_logs": logs, "count": len(logs)})
}
