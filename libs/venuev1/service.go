package venuev1

import (
	"context"

	"github.com/venuebook/venuebook/libs/grpcx"
	"google.golang.org/grpc"
)

type VenueServiceServer interface {
	GetVenue(context.Context, *GetVenueRequest) (*Venue, error)
	ListRules(context.Context, *ListRulesRequest) (*ListRulesResponse, error)
	ListBlackouts(context.Context, *ListBlackoutsRequest) (*ListBlackoutsResponse, error)
}

func RegisterVenueServiceServer(s grpc.ServiceRegistrar, srv VenueServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VenueServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetVenue", Handler: getVenueHandler},
		{MethodName: "ListRules", Handler: listRulesHandler},
		{MethodName: "ListBlackouts", Handler: listBlackoutsHandler},
	},
	Metadata: "venue/v1/venue.json",
}

func getVenueHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetVenueRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VenueServiceServer).GetVenue(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetVenue"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(VenueServiceServer).GetVenue(ctx, req.(*GetVenueRequest))
	})
}

func listRulesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListRulesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VenueServiceServer).ListRules(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListRules"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(VenueServiceServer).ListRules(ctx, req.(*ListRulesRequest))
	})
}

func listBlackoutsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListBlackoutsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(VenueServiceServer).ListBlackouts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/ListBlackouts"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(VenueServiceServer).ListBlackouts(ctx, req.(*ListBlackoutsRequest))
	})
}

type VenueServiceClient interface {
	GetVenue(ctx context.Context, in *GetVenueRequest, opts ...grpc.CallOption) (*Venue, error)
	ListRules(ctx context.Context, in *ListRulesRequest, opts ...grpc.CallOption) (*ListRulesResponse, error)
	ListBlackouts(ctx context.Context, in *ListBlackoutsRequest, opts ...grpc.CallOption) (*ListBlackoutsResponse, error)
}

type venueServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewVenueServiceClient(cc grpc.ClientConnInterface) VenueServiceClient {
	return &venueServiceClient{cc: cc}
}

func (c *venueServiceClient) GetVenue(ctx context.Context, in *GetVenueRequest, opts ...grpc.CallOption) (*Venue, error) {
	out := new(Venue)
	if err := c.invoke(ctx, "GetVenue", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *venueServiceClient) ListRules(ctx context.Context, in *ListRulesRequest, opts ...grpc.CallOption) (*ListRulesResponse, error) {
	out := new(ListRulesResponse)
	if err := c.invoke(ctx, "ListRules", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *venueServiceClient) ListBlackouts(ctx context.Context, in *ListBlackoutsRequest, opts ...grpc.CallOption) (*ListBlackoutsResponse, error) {
	out := new(ListBlackoutsResponse)
	if err := c.invoke(ctx, "ListBlackouts", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *venueServiceClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(grpcx.JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}
