// Package santuapb holds the gRPC stubs for proto/santua/v1/matching.proto.
// The service only uses google.protobuf.Struct, so there are no message
// types of its own.
package santuapb

//go:generate protoc -I ../../../proto --go-grpc_out=../../.. --go-grpc_opt=module=santua santua/v1/matching.proto
