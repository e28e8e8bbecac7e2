package grpc_go

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kleimkuhler/tracing/trace/tracer"
)

// currently only unary interceptors are supported

func NewUnaryServerInterceptor(tr tracer.Tracer) grpc.UnaryServerInterceptor {
	if tr == nil {
		panic("tracer is nil")
	}
	return func(ctx context.Context, req interface{},
		info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		span, ctxWithSpan := tr.StartSpanFromContext(ctx, "grpc.called")
		defer span.Finish()

		span.SetField(tracer.PeerType, tracer.GRPC)
		span.SetField(tracer.HttpPath, info.FullMethod)

		resp, err = handler(ctxWithSpan, req)
		if err != nil {
			s, _ := status.FromError(err)
			span.SetField("grpc.status_code", int64(s.Code()))
			span.SetField(tracer.ErrorKey, err.Error())
		} else {
			span.SetField("grpc.status_code", int64(codes.OK))
		}
		return
	}
}

func NewUnaryClientInterceptor(tr tracer.Tracer) grpc.UnaryClientInterceptor {
	if tr == nil {
		panic("tracer is nil")
	}
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		span, ctxWithSpan := tr.StartSpanFromContext(ctx, "grpc.call")
		defer span.Finish()

		span.SetField(tracer.PeerType, tracer.GRPC)
		span.SetField(tracer.PeerAddress, cc.Target())
		span.SetField(tracer.HttpPath, method)

		err := invoker(ctxWithSpan, method, req, reply, cc, callOpts...)
		if err != nil {
			s, _ := status.FromError(err)
			span.SetField("grpc.status_code", int64(s.Code()))
			span.SetField(tracer.ErrorKey, err.Error())
		} else {
			span.SetField("grpc.status_code", int64(codes.OK))
		}
		return err
	}
}
