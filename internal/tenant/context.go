package tenant

import "context"

type contextKey string

const schoolKey contextKey = "school_id"

// WithSchoolID scopes ctx to the school addressed by the request path.
func WithSchoolID(ctx context.Context, schoolID string) context.Context {
	return context.WithValue(ctx, schoolKey, schoolID)
}

func SchoolIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(schoolKey).(string)
	return id
}
