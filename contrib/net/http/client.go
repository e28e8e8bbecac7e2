package http

import (
	"net/http"

	"github.com/kleimkuhler/tracing/trace/tracer"
)

type Config struct {
	peerServiceGetter func(req *http.Request) string
}

type Option func(*Config)

func WithPeerServiceGetter(f func(req *http.Request) string) Option {
	return func(cfg *Config) {
		if f != nil {
			cfg.peerServiceGetter = f
		}
	}
}

func newDefaultConfig() *Config {
	return &Config{
		peerServiceGetter: func(req *http.Request) string {
			if req.URL != nil {
				return req.URL.Host
			}
			return ""
		},
	}
}

type roundTripper struct {
	cfg    *Config
	tracer tracer.Tracer
	base   http.RoundTripper
}

func (rt *roundTripper) RoundTrip(req *http.Request) (res *http.Response, err error) {
	if req == nil {
		return rt.base.RoundTrip(req)
	}
	peerService := "empty"
	if ps := rt.cfg.peerServiceGetter(req); ps != "" {
		peerService = ps
	}
	span, ctx := rt.tracer.StartSpanFromContext(req.Context(), "http_call")
	defer span.Finish()

	span.SetField(tracer.PeerType, tracer.Http)
	span.SetField(tracer.PeerService, peerService)
	span.SetField(tracer.HttpMethod, req.Method)

	res, err = rt.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		span.SetField(tracer.ErrorKey, err.Error())
	} else {
		span.SetField(tracer.HttpStatusCode, res.StatusCode)
	}
	return res, err
}

func WrapClient(c *http.Client, tr tracer.Tracer, opts ...Option) *http.Client {
	if tr == nil {
		panic("tracer is nil")
	}
	if c.Transport == nil {
		c.Transport = http.DefaultTransport
	}
	cfg := newDefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	c.Transport = &roundTripper{
		cfg:    cfg,
		tracer: tr,
		base:   c.Transport,
	}
	return c
}
