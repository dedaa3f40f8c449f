// Package dataservice binds the DataService wire contract to gRPC.
//
// The messages described in dataservice.proto are wire compatible with the
// protobuf well-known types Empty and BytesValue, which are used directly so
// that no code generation step is required.
package dataservice

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/robertodauria/streambench/pkg/streambench/spec"
)

// DataRequest is the (empty) request message of GiveMeData.
type DataRequest = emptypb.Empty

// DataResponse carries a single frame in its Value field.
type DataResponse = wrapperspb.BytesValue

// NewFrame wraps b in a DataResponse without copying it.
func NewFrame(b []byte) *DataResponse {
	return &DataResponse{Value: b}
}

// DataServiceClient is the client API for DataService.
type DataServiceClient interface {
	GiveMeData(ctx context.Context, in *DataRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[DataResponse], error)
}

type dataServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDataServiceClient returns a DataServiceClient using cc.
func NewDataServiceClient(cc grpc.ClientConnInterface) DataServiceClient {
	return &dataServiceClient{cc}
}

func (c *dataServiceClient) GiveMeData(ctx context.Context, in *DataRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[DataResponse], error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], spec.GiveMeDataMethod, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[DataRequest, DataResponse]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// DataServiceServer is the server API for DataService.
type DataServiceServer interface {
	GiveMeData(*DataRequest, grpc.ServerStreamingServer[DataResponse]) error
}

// UnimplementedDataServiceServer can be embedded to get an implementation
// that fails every call with codes.Unimplemented.
type UnimplementedDataServiceServer struct{}

// GiveMeData implements DataServiceServer.
func (UnimplementedDataServiceServer) GiveMeData(*DataRequest, grpc.ServerStreamingServer[DataResponse]) error {
	return status.Errorf(codes.Unimplemented, "method GiveMeData not implemented")
}

// RegisterDataServiceServer registers srv with s.
func RegisterDataServiceServer(s grpc.ServiceRegistrar, srv DataServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func giveMeDataHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(DataRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(DataServiceServer).GiveMeData(m, &grpc.GenericServerStream[DataRequest, DataResponse]{ServerStream: stream})
}

// ServiceDesc is the grpc.ServiceDesc for DataService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: spec.ServiceName,
	HandlerType: (*DataServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GiveMeData",
			Handler:       giveMeDataHandler,
			ServerStreams: true,
		},
	},
	Metadata: "dataservice.proto",
}
