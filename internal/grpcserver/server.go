// Package grpcserver implements the ApplicationLifecycle gRPC server.
//
// It delegates all business logic to lifecycle.Service and handles
// only the gRPC transport concerns: metadata extraction, error mapping,
// and conversion between domain values and Struct messages.
package grpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"jobportal/application-service/internal/lifecycle"
)

// Server implements LifecycleServer.
type Server struct {
	svc *lifecycle.Service
	dir lifecycle.Directory
}

// NewServer constructs a gRPC Server backed by the given lifecycle.Service.
func NewServer(svc *lifecycle.Service, dir lifecycle.Directory) *Server {
	return &Server{svc: svc, dir: dir}
}

// ─── RPC implementations ──────────────────────────────────────────────────────

func (s *Server) GetApplication(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	app, err := s.svc.Get(ctx, field(req, "applicationId"), actor)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(app)
}

func (s *Server) ListApplicantApplications(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	apps, err := s.svc.ListForApplicant(ctx, actor)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"applications": apps})
}

func (s *Server) ListJobApplications(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	apps, err := s.svc.ListForJob(ctx, field(req, "jobId"), actor)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(map[string]any{"applications": apps})
}

// TransitionStatus expects {applicationId, status, feedback?}.
func (s *Server) TransitionStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	target, err := lifecycle.ParseStatus(field(req, "status"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	app, err := s.svc.Transition(ctx, field(req, "applicationId"), target, field(req, "feedback"), actor)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(app)
}

func (s *Server) AcknowledgeApplication(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	app, err := s.svc.Acknowledge(ctx, field(req, "applicationId"), actor)
	if err != nil {
		return nil, toGRPCError(err)
	}
	return toStruct(app)
}

// StatusConfig needs no caller identity.
func (s *Server) StatusConfig(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(lifecycle.StatusConfig())
}

// ─── Interceptors ────────────────────────────────────────────────────────────

// LoggingInterceptor logs every unary call with its code and latency.
func LoggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Info("grpc call", "method", info.FullMethod, "code", status.Code(err).String(), "duration", time.Since(start))
		return resp, err
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// actor resolves the x-user-id value forwarded by the Gateway via gRPC
// metadata into a directory user.
func (s *Server) actor(ctx context.Context) (lifecycle.Actor, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return lifecycle.Actor{}, status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get("x-user-id")
	if len(vals) == 0 || vals[0] == "" {
		return lifecycle.Actor{}, status.Error(codes.Unauthenticated, "missing x-user-id metadata")
	}
	u, err := s.dir.FindUser(ctx, vals[0])
	if errors.Is(err, lifecycle.ErrNotFound) {
		return lifecycle.Actor{}, status.Error(codes.Unauthenticated, "unknown user")
	}
	if err != nil {
		return lifecycle.Actor{}, status.Error(codes.Internal, "internal server error")
	}
	return *u, nil
}

// toGRPCError maps domain errors to gRPC status errors.
func toGRPCError(err error) error {
	var ve *lifecycle.ValidationError
	switch {
	case errors.As(err, &ve):
		return status.Error(codes.InvalidArgument, ve.Msg)
	case errors.Is(err, lifecycle.ErrNotFound), errors.Is(err, lifecycle.ErrNotAuthorized):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, lifecycle.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, lifecycle.ErrClosed):
		return status.Error(codes.FailedPrecondition, lifecycle.ErrClosed.Error())
	case errors.Is(err, lifecycle.ErrDuplicate),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrFeedbackRequired):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, lifecycle.ErrConflict):
		return status.Error(codes.Aborted, lifecycle.ErrConflict.Error())
	case errors.Is(err, lifecycle.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, lifecycle.ErrRateLimited.Error())
	}
	slog.Error("grpc request failed", "err", err)
	return status.Error(codes.Internal, "internal server error")
}

func field(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	return v.GetStringValue()
}

// toStruct converts v through its JSON form so gRPC and HTTP share shapes.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
