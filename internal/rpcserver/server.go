// Package rpcserver implements santua.v1.Matching. Requests and replies are
// google.protobuf.Struct values, so the JSON field names of the HTTP API carry
// over unchanged.
package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"santua/internal/matching"
	"santua/internal/sticker"
	"santua/pkg/grpc/santuapb"
)

// SubmitMethods are the calls that create entries and so share the
// submission rate limit with the HTTP routes.
var SubmitMethods = []string{
	santuapb.Matching_SubmitFound_FullMethodName,
	santuapb.Matching_SubmitLost_FullMethodName,
}

type Server struct {
	santuapb.UnimplementedMatchingServer

	Matching *matching.Service
	Stickers *sticker.Registry
	Log      *zap.Logger
}

func NewServer(svc *matching.Service, reg *sticker.Registry, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Matching: svc, Stickers: reg, Log: log}
}

func (s *Server) SubmitFound(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.submit(ctx, matching.KindFound, in)
}

func (s *Server) SubmitLost(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.submit(ctx, matching.KindLost, in)
}

func (s *Server) submit(ctx context.Context, kind matching.Kind, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	sub := matching.SubmissionFromMap(in.AsMap())

	var (
		res matching.Result
		err error
	)
	if kind == matching.KindFound {
		res, err = s.Matching.SubmitFound(ctx, sub)
	} else {
		res, err = s.Matching.SubmitLost(ctx, sub)
	}
	if err != nil {
		if errors.Is(err, matching.ErrValidation) {
			return nil, status.Error(codes.InvalidArgument, "nro required")
		}
		s.Log.Error("grpc submit failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, status.Error(codes.Internal, "submit failed")
	}

	out := map[string]any{
		"success": res.Status != matching.StatusDuplicate,
		"status":  string(res.Status),
		"entry":   res.Entry,
	}
	if res.Match != nil {
		out["match"] = res.Match
	}
	if res.Message != "" {
		out["message"] = res.Message
	}
	return toStruct(out)
}

func (s *Server) LookupSticker(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := ""
	if in != nil {
		if v, ok := in.GetFields()["id"]; ok {
			id = strings.TrimSpace(v.GetStringValue())
		}
	}
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}

	contact, err := s.Stickers.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, sticker.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "not activated or does not exist")
		}
		return nil, status.Error(codes.Internal, "lookup failed")
	}
	return toStruct(contact)
}

// toStruct converts v through its JSON form so replies use the same field
// names as the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode reply")
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode reply")
	}
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode reply")
	}
	return st, nil
}
