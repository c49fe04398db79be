package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/classroom"
)

type ClassHandler struct {
	classes *classroom.Service
}

func NewClassHandler(svc *classroom.Service) *ClassHandler {
	return &ClassHandler{classes: svc}
}

func (h *ClassHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BranchID          *string `json:"branch_id,omitempty"`
		AcademicYearID    string  `json:"academic_year_id"`
		Name              string  `json:"name" validate:"required,max=100"`
		Code              string  `json:"code" validate:"max=50"`
		GradeLevel        string  `json:"grade_level" validate:"max=50"`
		HomeroomTeacherID *string `json:"homeroom_teacher_id,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.classes.Create(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), classroom.CreateInput{
		BranchID:          req.BranchID,
		AcademicYearID:    req.AcademicYearID,
		Name:              req.Name,
		Code:              req.Code,
		GradeLevel:        req.GradeLevel,
		HomeroomTeacherID: req.HomeroomTeacherID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ClassHandler) List(w http.ResponseWriter, r *http.Request) {
	classes, err := h.classes.List(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"classes": classes, "count": len(classes)})
}

func (h *ClassHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.classes.Get(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "classID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Roster lists the students whose current class is classID.
func (h *ClassHandler) Roster(w http.ResponseWriter, r *http.Request) {
	students, err := h.classes.Roster(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "classID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"students": students, "count": len(students)})
}

// Reconcile rebuilds one roster when the route names a class, otherwise
// every roster in the school.
func (h *ClassHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	n, err := h.classes.Reconcile(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "classID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reconciled": n})
}
