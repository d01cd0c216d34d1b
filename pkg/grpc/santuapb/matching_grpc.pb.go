// source: santua/v1/matching.proto

package santuapb

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
	structpb "google.golang.org/protobuf/types/known/structpb"
)

// This is a compile-time assertion to ensure that this generated file
// is compatible with the grpc package it is being compiled against.
// Requires gRPC-Go v1.64.0 or later.
const _ = grpc.SupportPackageIsVersion9

const (
	Matching_SubmitFound_FullMethodName   = "/santua.v1.Matching/SubmitFound"
	Matching_SubmitLost_FullMethodName    = "/santua.v1.Matching/SubmitLost"
	Matching_LookupSticker_FullMethodName = "/santua.v1.Matching/LookupSticker"
)

// MatchingClient is the client API for Matching service.
//
// For semantics around ctx use and closing/ending streaming RPCs, please refer to https://pkg.go.dev/google.golang.org/grpc/?tab=doc#ClientConn.NewStream.
type MatchingClient interface {
	SubmitFound(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SubmitLost(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	LookupSticker(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type matchingClient struct {
	cc grpc.ClientConnInterface
}

func NewMatchingClient(cc grpc.ClientConnInterface) MatchingClient {
	return &matchingClient{cc}
}

func (c *matchingClient) SubmitFound(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, Matching_SubmitFound_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *matchingClient) SubmitLost(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, Matching_SubmitLost_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *matchingClient) LookupSticker(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, Matching_LookupSticker_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MatchingServer is the server API for Matching service.
// All implementations must embed UnimplementedMatchingServer
// for forward compatibility.
type MatchingServer interface {
	SubmitFound(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitLost(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LookupSticker(context.Context, *structpb.Struct) (*structpb.Struct, error)
	mustEmbedUnimplementedMatchingServer()
}

// UnimplementedMatchingServer must be embedded to have
// forward compatible implementations.
//
// NOTE: this should be embedded by value instead of pointer to avoid a nil
// pointer dereference when methods are called.
type UnimplementedMatchingServer struct{}

func (UnimplementedMatchingServer) SubmitFound(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SubmitFound not implemented")
}
func (UnimplementedMatchingServer) SubmitLost(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SubmitLost not implemented")
}
func (UnimplementedMatchingServer) LookupSticker(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method LookupSticker not implemented")
}
func (UnimplementedMatchingServer) mustEmbedUnimplementedMatchingServer() {}
func (UnimplementedMatchingServer) testEmbeddedByValue()                  {}

// UnsafeMatchingServer may be embedded to opt out of forward compatibility for this service.
// Use of this interface is not recommended, as added methods to MatchingServer will
// result in compilation errors.
type UnsafeMatchingServer interface {
	mustEmbedUnimplementedMatchingServer()
}

func RegisterMatchingServer(s grpc.ServiceRegistrar, srv MatchingServer) {
	// If the following call panics, it indicates UnimplementedMatchingServer was
	// embedded by pointer and is nil.  This will cause panics if an
	// unimplemented method is ever invoked, so we test this at initialization
	// time to prevent it from happening at runtime later due to I/O.
	if t, ok := srv.(interface{ testEmbeddedByValue() }); ok {
		t.testEmbeddedByValue()
	}
	s.RegisterService(&Matching_ServiceDesc, srv)
}

func _Matching_SubmitFound_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchingServer).SubmitFound(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Matching_SubmitFound_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MatchingServer).SubmitFound(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Matching_SubmitLost_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchingServer).SubmitLost(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Matching_SubmitLost_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MatchingServer).SubmitLost(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _Matching_LookupSticker_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MatchingServer).LookupSticker(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Matching_LookupSticker_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MatchingServer).LookupSticker(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Matching_ServiceDesc is the grpc.ServiceDesc for Matching service.
// It's only intended for direct use with grpc.RegisterService,
// and not to be introspected or modified (even as a copy)
var Matching_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "santua.v1.Matching",
	HandlerType: (*MatchingServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitFound",
			Handler:    _Matching_SubmitFound_Handler,
		},
		{
			MethodName: "SubmitLost",
			Handler:    _Matching_SubmitLost_Handler,
		},
		{
			MethodName: "LookupSticker",
			Handler:    _Matching_LookupSticker_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "santua/v1/matching.proto",
}
