package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/student"
)

type StudentHandler struct {
	students *student.Service
}

func NewStudentHandler(svc *student.Service) *StudentHandler {
	return &StudentHandler{students: svc}
}

func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BranchID       *string `json:"branch_id,omitempty"`
		StudentCode    string  `json:"student_code" validate:"max=50"`
		FirstName      string  `json:"first_name" validate:"required,max=100"`
		LastName       string  `json:"last_name" validate:"required,max=100"`
		GradeLevel     string  `json:"grade_level" validate:"max=50"`
		CurrentClassID *string `json:"current_class_id,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.students.Create(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), student.CreateInput{
		BranchID:       req.BranchID,
		StudentCode:    req.StudentCode,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		GradeLevel:     req.GradeLevel,
		CurrentClassID: req.CurrentClassID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.students.Get(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Update applies a partial update. An explicit "current_class_id": null
// takes the student out of their class; an absent key leaves it alone.
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName      *string `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
		LastName       *string `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
		GradeLevel     *string `json:"grade_level,omitempty" validate:"omitempty,max=50"`
		Status         *string `json:"status,omitempty" validate:"omitempty,max=50"`
		CurrentClassID *string `json:"current_class_id,omitempty"`
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadBody, err))
		return
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadBody, err))
		return
	}
	if err := check(&req); err != nil {
		writeError(w, r, err)
		return
	}
	classRaw, hasClass := raw["current_class_id"]

	res, err := h.students.Update(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "studentID"), student.UpdateInput{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		GradeLevel:     req.GradeLevel,
		Status:         req.Status,
		CurrentClassID: req.CurrentClassID,
		ClearClass:     hasClass && string(classRaw) == "null",
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.students.Delete(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r), chi.URLParam(r, "studentID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
