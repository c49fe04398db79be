package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type captureLogger struct {
	entries []Entry
	err     error
}

func (c *captureLogger) Log(_ context.Context, e Entry) error {
	c.entries = append(c.entries, e)
	return c.err
}

func TestRecord(t *testing.T) {
	l := &captureLogger{}
	Record(context.Background(), l, Entry{Action: ActionMemberAdded, SchoolID: "s1"})
	assert.Len(t, l.entries, 1)

	failing := &captureLogger{err: errors.New("db down")}
	assert.NotPanics(t, func() {
		Record(context.Background(), failing, Entry{Action: ActionMemberRemoved})
	})

	assert.NotPanics(t, func() {
		Record(context.Background(), nil, Entry{Action: ActionMemberRemoved})
	})
}
