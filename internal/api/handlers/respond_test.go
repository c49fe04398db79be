package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/member"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/tenant"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthenticated", auth.ErrAuthenticationRequired, http.StatusUnauthorized, CodeAuthenticationRequired},
		{"not a member", auth.ErrNotAMember, http.StatusForbidden, CodeNotAMember},
		{"insufficient", fmt.Errorf("wrapped: %w", auth.ErrInsufficientPermissions), http.StatusForbidden, CodeInsufficientPermissions},
		{"duplicate", member.ErrDuplicateMembership, http.StatusConflict, CodeDuplicateMembership},
		{"bad role", fmt.Errorf("%w: %q", permission.ErrInvalidRoleLiteral, "Wizard"), http.StatusBadRequest, CodeInvalidRole},
		{"bad status", models.ErrInvalidStatusLiteral, http.StatusBadRequest, CodeValidationFailed},
		{"bad permission", permission.ErrInvalidPermissionLiteral, http.StatusBadRequest, CodeValidationFailed},
		{"missing school", tenant.ErrSchoolNotFound, http.StatusNotFound, CodeNotFound},
		{"last owner", member.ErrCannotRemoveLastOwner, http.StatusConflict, CodeConflict},
		{"consistency", fmt.Errorf("%w: boom", tenant.ErrTenantConsistencyRisk), http.StatusInternalServerError, CodeTenantConsistencyRisk},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestCheck_SchoolRoleTag(t *testing.T) {
	req := struct {
		Role string `json:"role" validate:"required,school_role"`
	}{Role: "Wizard"}
	assert.ErrorIs(t, check(&req), permission.ErrInvalidRoleLiteral)

	req.Role = "HeadTeacher"
	assert.NoError(t, check(&req))
}

func TestCheck_FieldsUseJSONNames(t *testing.T) {
	req := struct {
		FirstName string `json:"first_name" validate:"required"`
	}{}
	err := check(&req)
	var verr *validationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.fields, "first_name")
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("dial tcp 10.0.0.1: refused"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
	assert.Contains(t, rec.Body.String(), CodeInternal)
}

func TestWriteError_ConsistencyRiskUsesFixedMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	err := fmt.Errorf("%w: school s1: insert member: dial tcp 10.0.0.1: i/o timeout", tenant.ErrTenantConsistencyRisk)
	writeError(rec, httptest.NewRequest(http.MethodPost, "/api/v1/schools", nil), err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, CodeTenantConsistencyRisk)
	assert.Contains(t, body, tenant.ErrTenantConsistencyRisk.Error())
	assert.NotContains(t, body, "10.0.0.1")
	assert.NotContains(t, body, "s1")
}

func TestStudentUpdate_RejectsOversizedBody(t *testing.T) {
	payload := `{"first_name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/schools/s1/students/st1", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	NewStudentHandler(nil).Update(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), CodeValidationFailed)
}
