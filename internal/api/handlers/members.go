package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/member"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
)

type MemberHandler struct {
	members *member.Service
}

func NewMemberHandler(svc *member.Service) *MemberHandler {
	return &MemberHandler{members: svc}
}

type memberView struct {
	*models.Member
	EffectivePermissions []permission.Permission `json:"effective_permissions"`
}

func viewOf(m *models.Member) memberView {
	return memberView{Member: m, EffectivePermissions: m.EffectivePermissions()}
}

func viewsOf(members []models.Member) []memberView {
	out := make([]memberView, 0, len(members))
	for i := range members {
		out = append(out, viewOf(&members[i]))
	}
	return out
}

func parsePermissions(raw []string) ([]permission.Permission, error) {
	if raw == nil {
		return nil, nil
	}
	out := make([]permission.Permission, 0, len(raw))
	for _, s := range raw {
		p, err := permission.ParsePermission(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string   `json:"user_id" validate:"required"`
		Role        string   `json:"role" validate:"required,school_role"`
		BranchID    *string  `json:"branch_id,omitempty"`
		Title       *string  `json:"title,omitempty" validate:"omitempty,max=100"`
		StudentID   *string  `json:"student_id,omitempty"`
		StaffID     *string  `json:"staff_id,omitempty"`
		ParentOf    []string `json:"parent_of,omitempty"`
		Permissions []string `json:"permissions,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	perms, err := parsePermissions(req.Permissions)
	if err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.members.Add(r.Context(), auth.IdentityFromContext(r.Context()), member.AddInput{
		SchoolID:    schoolID(r),
		UserID:      req.UserID,
		Role:        permission.SchoolRole(req.Role),
		BranchID:    req.BranchID,
		Title:       req.Title,
		StudentID:   req.StudentID,
		StaffID:     req.StaffID,
		ParentOf:    req.ParentOf,
		Permissions: perms,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(m))
}

// List returns the school's effectively active members, optionally
// narrowed by ?role.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		members []models.Member
		err     error
	)
	id := auth.IdentityFromContext(r.Context())
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, perr := permission.ParseRole(raw)
		if perr != nil {
			writeError(w, r, perr)
			return
		}
		members, err = h.members.MembersByRole(r.Context(), id, schoolID(r), role)
	} else {
		members, err = h.members.SchoolMembers(r.Context(), id, schoolID(r))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"members": viewsOf(members), "count": len(members)})
}

func (h *MemberHandler) Mine(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.MyMemberships(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"memberships": viewsOf(members), "count": len(members)})
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.members.Get(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}

func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role" validate:"required,school_role"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.members.UpdateRole(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "memberID"), permission.SchoolRole(req.Role))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}

func (h *MemberHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	status, err := models.ParseMemberStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.members.SetStatus(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "memberID"), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}

func (h *MemberHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Permissions []string `json:"permissions" validate:"required,min=1"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	perms, err := parsePermissions(req.Permissions)
	if err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.members.GrantPermissions(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "memberID"), perms)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}

// Remove soft-deletes the membership; the response carries the final record.
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	m, err := h.members.Remove(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m))
}
