package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "appointmate.v1.AppointmentsService"

type AppointmentsServiceServer interface {
	BookAppointment(context.Context, *BookAppointmentRequest) (*BookAppointmentResponse, error)
	RescheduleAppointment(context.Context, *RescheduleAppointmentRequest) (*RescheduleAppointmentResponse, error)
	CancelAppointment(context.Context, *CancelAppointmentRequest) (*CancelAppointmentResponse, error)
	ListClientAppointments(context.Context, *ListClientAppointmentsRequest) (*ListClientAppointmentsResponse, error)
	ListAvailableSlots(context.Context, *ListAvailableSlotsRequest) (*ListAvailableSlotsResponse, error)
	ListAppointmentsForDate(context.Context, *ListAppointmentsForDateRequest) (*ListAppointmentsForDateResponse, error)
	GetProfessionalInfo(context.Context, *GetProfessionalInfoRequest) (*GetProfessionalInfoResponse, error)
	GetCurrentTime(context.Context, *GetCurrentTimeRequest) (*GetCurrentTimeResponse, error)
}

var AppointmentsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AppointmentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "BookAppointment", Handler: unaryHandler("BookAppointment", AppointmentsServiceServer.BookAppointment)},
		{MethodName: "RescheduleAppointment", Handler: unaryHandler("RescheduleAppointment", AppointmentsServiceServer.RescheduleAppointment)},
		{MethodName: "CancelAppointment", Handler: unaryHandler("CancelAppointment", AppointmentsServiceServer.CancelAppointment)},
		{MethodName: "ListClientAppointments", Handler: unaryHandler("ListClientAppointments", AppointmentsServiceServer.ListClientAppointments)},
		{MethodName: "ListAvailableSlots", Handler: unaryHandler("ListAvailableSlots", AppointmentsServiceServer.ListAvailableSlots)},
		{MethodName: "ListAppointmentsForDate", Handler: unaryHandler("ListAppointmentsForDate", AppointmentsServiceServer.ListAppointmentsForDate)},
		{MethodName: "GetProfessionalInfo", Handler: unaryHandler("GetProfessionalInfo", AppointmentsServiceServer.GetProfessionalInfo)},
		{MethodName: "GetCurrentTime", Handler: unaryHandler("GetCurrentTime", AppointmentsServiceServer.GetCurrentTime)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "appointmate/v1/appointments.proto",
}

func RegisterAppointmentsServiceServer(s grpc.ServiceRegistrar, srv AppointmentsServiceServer) {
	s.RegisterService(&AppointmentsService_ServiceDesc, srv)
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](
	method string,
	call func(AppointmentsServiceServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AppointmentsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AppointmentsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AppointmentsServiceClient calls the service over cc with the JSON codec forced.
type AppointmentsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAppointmentsServiceClient(cc grpc.ClientConnInterface) *AppointmentsServiceClient {
	return &AppointmentsServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.ForceCodec(jsonCodec{})}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AppointmentsServiceClient) BookAppointment(ctx context.Context, in *BookAppointmentRequest, opts ...grpc.CallOption) (*BookAppointmentResponse, error) {
	return invoke[BookAppointmentResponse](ctx, c.cc, "BookAppointment", in, opts)
}

func (c *AppointmentsServiceClient) RescheduleAppointment(ctx context.Context, in *RescheduleAppointmentRequest, opts ...grpc.CallOption) (*RescheduleAppointmentResponse, error) {
	return invoke[RescheduleAppointmentResponse](ctx, c.cc, "RescheduleAppointment", in, opts)
}

func (c *AppointmentsServiceClient) CancelAppointment(ctx context.Context, in *CancelAppointmentRequest, opts ...grpc.CallOption) (*CancelAppointmentResponse, error) {
	return invoke[CancelAppointmentResponse](ctx, c.cc, "CancelAppointment", in, opts)
}

func (c *AppointmentsServiceClient) ListClientAppointments(ctx context.Context, in *ListClientAppointmentsRequest, opts ...grpc.CallOption) (*ListClientAppointmentsResponse, error) {
	return invoke[ListClientAppointmentsResponse](ctx, c.cc, "ListClientAppointments", in, opts)
}

func (c *AppointmentsServiceClient) ListAvailableSlots(ctx context.Context, in *ListAvailableSlotsRequest, opts ...grpc.CallOption) (*ListAvailableSlotsResponse, error) {
	return invoke[ListAvailableSlotsResponse](ctx, c.cc, "ListAvailableSlots", in, opts)
}

func (c *AppointmentsServiceClient) ListAppointmentsForDate(ctx context.Context, in *ListAppointmentsForDateRequest, opts ...grpc.CallOption) (*ListAppointmentsForDateResponse, error) {
	return invoke[ListAppointmentsForDateResponse](ctx, c.cc, "ListAppointmentsForDate", in, opts)
}

func (c *AppointmentsServiceClient) GetProfessionalInfo(ctx context.Context, in *GetProfessionalInfoRequest, opts ...grpc.CallOption) (*GetProfessionalInfoResponse, error) {
	return invoke[GetProfessionalInfoResponse](ctx, c.cc, "GetProfessionalInfo", in, opts)
}

func (c *AppointmentsServiceClient) GetCurrentTime(ctx context.Context, in *GetCurrentTimeRequest, opts ...grpc.CallOption) (*GetCurrentTimeResponse, error) {
	return invoke[GetCurrentTimeResponse](ctx, c.cc, "GetCurrentTime", in, opts)
}
