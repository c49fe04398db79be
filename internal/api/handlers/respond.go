package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/classroom"
	"github.com/schoolhub/membership/internal/identity"
	"github.com/schoolhub/membership/internal/member"
	"github.com/schoolhub/membership/internal/models"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/student"
	"github.com/schoolhub/membership/internal/tenant"
)

const (
	CodeAuthenticationRequired  = "AUTHENTICATION_REQUIRED"
	CodeNotAMember              = "NOT_A_MEMBER"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeDuplicateMembership     = "DUPLICATE_MEMBERSHIP"
	CodeInvalidRole             = "INVALID_ROLE"
	CodeValidationFailed        = "VALIDATION_FAILED"
	CodeNotFound                = "NOT_FOUND"
	CodeConflict                = "CONFLICT"
	CodeTenantConsistencyRisk   = "TENANT_CONSISTENCY_RISK"
	CodeInternal                = "INTERNAL"
)

const schoolRoleTag = "school_role"

var (
	validate   *validator.Validate
	translator ut.Translator

	errBadBody = errors.New("invalid request body")
)

func init() {
	validate = validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation(schoolRoleTag, func(fl validator.FieldLevel) bool {
		return permission.SchoolRole(fl.Field().String()).Valid()
	})
}

// validationError carries per-field messages for a VALIDATION_FAILED body.
type validationError struct {
	fields map[string]string
}

func (e *validationError) Error() string {
	parts := make([]string, 0, len(e.fields))
	for f, msg := range e.fields {
		parts = append(parts, f+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// decode reads a JSON body into dst and runs struct validation. A role field
// that fails the school_role tag surfaces as permission.ErrInvalidRoleLiteral.
// MaxBodyBytes caps every JSON request body.
const MaxBodyBytes = 1 << 20

// readBody reads the whole request body, refusing anything over MaxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	return body, nil
}

func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return check(dst)
}

func check(dst interface{}) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == schoolRoleTag {
			return fmt.Errorf("%w: %q", permission.ErrInvalidRoleLiteral, fe.Value())
		}
		fields[fe.Field()] = fe.Translate(translator)
	}
	return &validationError{fields: fields}
}

// schoolID is the tenant selected by the route, set by the router's
// school-scope middleware.
func schoolID(r *http.Request) string {
	return tenant.SchoolIDFromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// classify maps a domain error onto an HTTP status and a stable error code.
func classify(err error) (int, string) {
	var verr *validationError
	switch {
	case errors.Is(err, auth.ErrAuthenticationRequired),
		errors.Is(err, auth.ErrInvalidOrExpired),
		errors.Is(err, identity.ErrProviderRejected):
		return http.StatusUnauthorized, CodeAuthenticationRequired
	case errors.Is(err, auth.ErrNotAMember):
		return http.StatusForbidden, CodeNotAMember
	case errors.Is(err, auth.ErrInsufficientPermissions):
		return http.StatusForbidden, CodeInsufficientPermissions
	case errors.Is(err, member.ErrDuplicateMembership):
		return http.StatusConflict, CodeDuplicateMembership
	case errors.Is(err, permission.ErrInvalidRoleLiteral):
		return http.StatusBadRequest, CodeInvalidRole
	case errors.As(err, &verr),
		errors.Is(err, errBadBody),
		errors.Is(err, permission.ErrInvalidPermissionLiteral),
		errors.Is(err, models.ErrInvalidStatusLiteral),
		errors.Is(err, member.ErrNoPermissions),
		errors.Is(err, tenant.ErrInvalidSchool),
		errors.Is(err, classroom.ErrInvalidClass),
		errors.Is(err, student.ErrInvalidStudent):
		return http.StatusBadRequest, CodeValidationFailed
	case errors.Is(err, member.ErrMemberNotFound),
		errors.Is(err, tenant.ErrSchoolNotFound),
		errors.Is(err, classroom.ErrClassNotFound),
		errors.Is(err, student.ErrStudentNotFound),
		errors.Is(err, identity.ErrUserNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, member.ErrCannotRemoveLastOwner),
		errors.Is(err, tenant.ErrIdempotencyConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, tenant.ErrTenantConsistencyRisk):
		return http.StatusInternalServerError, CodeTenantConsistencyRisk
	}
	return http.StatusInternalServerError, CodeInternal
}

// writeError renders err as {"error": ..., "code": ...}. Server errors are
// logged, reported to Sentry and returned with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	body := map[string]interface{}{"error": err.Error(), "code": code}

	var verr *validationError
	if errors.As(err, &verr) {
		body["fields"] = verr.fields
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		hub.CaptureException(err)
		switch code {
		case CodeTenantConsistencyRisk:
			body["error"] = tenant.ErrTenantConsistencyRisk.Error()
		default:
			body["error"] = http.StatusText(http.StatusInternalServerError)
		}
	}
	writeJSON(w, status, body)
}
