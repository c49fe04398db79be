package handlers

import (
	"net/http"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/tenant"
)

const idempotencyHeader = "Idempotency-Key"

type SchoolHandler struct {
	tenants *tenant.Service
}

func NewSchoolHandler(svc *tenant.Service) *SchoolHandler {
	return &SchoolHandler{tenants: svc}
}

// Register creates a Pending school owned by the caller. Retries carrying the
// same Idempotency-Key return the school created by the first attempt.
func (h *SchoolHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string   `json:"name" validate:"required,max=200"`
		NameKm          *string  `json:"name_km,omitempty"`
		SchoolType      string   `json:"school_type" validate:"max=50"`
		EducationLevels []string `json:"education_levels"`
		Description     *string  `json:"description,omitempty"`
		Address         *string  `json:"address,omitempty"`
		Phone           *string  `json:"phone,omitempty"`
		Email           *string  `json:"email,omitempty" validate:"omitempty,email"`
		Website         *string  `json:"website,omitempty" validate:"omitempty,url"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	school, err := h.tenants.RegisterSchool(r.Context(), auth.IdentityFromContext(r.Context()), tenant.Draft{
		Name:            req.Name,
		NameKm:          req.NameKm,
		SchoolType:      req.SchoolType,
		EducationLevels: req.EducationLevels,
		Description:     req.Description,
		Address:         req.Address,
		Phone:           req.Phone,
		Email:           req.Email,
		Website:         req.Website,
	}, r.Header.Get(idempotencyHeader))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, school)
}

// List returns schools in the status given by ?status, Pending by default.
func (h *SchoolHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.SchoolPending
	if s := r.URL.Query().Get("status"); s != "" {
		status = models.SchoolStatus(s)
	}

	schools, err := h.tenants.SchoolsByStatus(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schools": schools, "count": len(schools)})
}

func (h *SchoolHandler) Pending(w http.ResponseWriter, r *http.Request) {
	schools, err := h.tenants.PendingSchools(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schools": schools, "count": len(schools)})
}

func (h *SchoolHandler) Mine(w http.ResponseWriter, r *http.Request) {
	schools, err := h.tenants.MySchools(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schools": schools, "count": len(schools)})
}

func (h *SchoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	school, err := h.tenants.GetSchool(r.Context(), auth.IdentityFromContext(r.Context()), schoolID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, school)
}

func (h *SchoolHandler) Approve(w http.ResponseWriter, r *http.Request) {
	school, err := h.tenants.Approve(r.Context(), schoolID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, school)
}

func (h *SchoolHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason *string `json:"reason,omitempty" validate:"omitempty,max=1000"`
	}
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	school, err := h.tenants.Reject(r.Context(), schoolID(r), req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, school)
}

// RepairOwner restores an Owner on a school left without one.
func (h *SchoolHandler) RepairOwner(w http.ResponseWriter, r *http.Request) {
	repaired, err := h.tenants.RequestRepair(r.Context(), schoolID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"repaired": repaired})
}
