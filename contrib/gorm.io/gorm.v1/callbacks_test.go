package gorm_v1

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"

	"github.com/kleimkuhler/tracing/trace/tracer"
)

func TestWrapDBRegistersCallbacks(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{})
	require.NoError(t, err)

	tr := tracer.NewTracer(tracer.WithWriter(io.Discard))
	wrapped, err := WrapDB("mysql", "localhost:3306", "app", db, tr)
	require.NoError(t, err)
	assert.Same(t, db, wrapped)

	// Re-registering under the same callback names must fail.
	_, err = WrapDB("mysql", "localhost:3306", "app", db, tr)
	assert.Error(t, err)
}

func TestFormatVars(t *testing.T) {
	ts := time.Unix(1700000000, 0)
	got := formatVars([]interface{}{
		"alice", 7, 3.5, ts,
		gorm.DeletedAt{},
		struct{}{},
	})
	assert.Equal(t, `['alice',7,3.5,1700000000,null,'?']`, got)
}
