package redis_v8

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/extra/rediscmd/v8"
	"github.com/go-redis/redis/v8"

	"github.com/kleimkuhler/tracing/trace/tracer"
)

type TracingHook struct {
	tracer tracer.Tracer

	addr string
	db   int
	// cache
	peerService string
}

type config struct {
	db int
}

func newDefaultConfig() *config {
	return &config{}
}

type Option func(*config)

func WithDB(db int) Option {
	return func(cfg *config) {
		cfg.db = db
	}
}

// NewTracingHook returns a redis monitor hook. Spans are started without
// entering the active stack because go-redis may finish a command on a
// different goroutine when retries are involved.
func NewTracingHook(tr tracer.Tracer, addr string, opts ...Option) *TracingHook {
	cfg := newDefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &TracingHook{tracer: tr, addr: addr, db: cfg.db}
}

func (th *TracingHook) BeforeProcess(ctx context.Context, cmd redis.Cmder) (context.Context, error) {
	span, ctxWithSpan := th.tracer.StartSpanFromContext(ctx, "redis.command", tracer.WithoutEnter())
	span.SetField(tracer.PeerType, tracer.Redis)
	span.SetField(tracer.PeerService, th.getPeerService())
	span.SetField(tracer.DbStatement, rediscmd.CmdString(cmd))
	return ctxWithSpan, nil
}

func (th *TracingHook) AfterProcess(ctx context.Context, cmd redis.Cmder) error {
	span := tracer.SpanFromContext(ctx)
	if span == nil {
		return nil
	}
	if err := cmd.Err(); err != nil && err != redis.Nil {
		span.SetField(tracer.ErrorKey, err.Error())
	}
	span.Finish()
	return nil
}

func (th *TracingHook) BeforeProcessPipeline(ctx context.Context, cmds []redis.Cmder) (context.Context, error) {
	summary, cmdsString := rediscmd.CmdsString(cmds)
	span, ctxWithSpan := th.tracer.StartSpanFromContext(ctx, "redis.pipeline", tracer.WithoutEnter())
	span.SetField(tracer.PeerType, tracer.Redis)
	span.SetField(tracer.PeerService, th.getPeerService())
	span.SetField(tracer.DbStatement, cmdsString)
	span.SetField("db.redis.pipe.summary", summary)
	span.SetField("db.redis.pipe.cmds_num", strconv.Itoa(len(cmds)))
	return ctxWithSpan, nil
}

func (th *TracingHook) AfterProcessPipeline(ctx context.Context, cmds []redis.Cmder) error {
	span := tracer.SpanFromContext(ctx)
	if span == nil {
		return nil
	}
	if len(cmds) > 0 {
		if err := cmds[0].Err(); err != nil && err != redis.Nil {
			span.SetField(tracer.ErrorKey, err.Error())
		}
	}
	span.Finish()
	return nil
}

func (th *TracingHook) getPeerService() string {
	if len(th.peerService) != 0 {
		return th.peerService
	}
	if th.db == 0 {
		th.peerService = "redis:" + th.addr
	} else {
		th.peerService = fmt.Sprintf("redis:%s/%d", th.addr, th.db)
	}
	return th.peerService
}
