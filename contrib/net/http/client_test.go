package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kleimkuhler/tracing/trace/tracer"
)

func TestWrapClientTracesRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	tr := tracer.NewTracer(tracer.WithWriter(io.Discard))
	client := WrapClient(&http.Client{}, tr)

	res, err := client.Get(srv.URL)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusAccepted, res.StatusCode)

	// The call span was finished inside the round trip.
	_, ok := tr.CurrentSpan()
	assert.False(t, ok)
}

func TestWrapClientKeepsBaseTransport(t *testing.T) {
	base := &http.Transport{}
	c := &http.Client{Transport: base}
	tr := tracer.NewTracer(tracer.WithWriter(io.Discard))

	WrapClient(c, tr)
	rt, ok := c.Transport.(*roundTripper)
	require.True(t, ok)
	assert.Same(t, base, rt.base)
}
