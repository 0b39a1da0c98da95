// Package authv1 is the Go side of api/tokenkeeper/v1/auth.proto: the
// tokenkeeper.v1.AuthService messages, its gRPC service descriptor and a
// client. Messages are protobuf encoded with the default gRPC codec.
package authv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	packageName      = "tokenkeeper.v1"
	serviceShortName = "AuthService"

	ServiceName = packageName + "." + serviceShortName
)

// Full method names, as seen by interceptors.
const (
	MethodPing           = "/" + ServiceName + "/Ping"
	MethodRegister       = "/" + ServiceName + "/Register"
	MethodCheckUsername  = "/" + ServiceName + "/CheckUsername"
	MethodLogin          = "/" + ServiceName + "/Login"
	MethodRefresh        = "/" + ServiceName + "/Refresh"
	MethodLogout         = "/" + ServiceName + "/Logout"
	MethodWhoAmI         = "/" + ServiceName + "/WhoAmI"
	MethodChangePassword = "/" + ServiceName + "/ChangePassword"
	MethodAssignRole     = "/" + ServiceName + "/AssignRole"
	MethodDeactivateUser = "/" + ServiceName + "/DeactivateUser"
)

type AuthServiceServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	CheckUsername(context.Context, *CheckUsernameRequest) (*CheckUsernameResponse, error)
	Login(context.Context, *LoginRequest) (*TokenPair, error)
	Refresh(context.Context, *RefreshRequest) (*TokenPair, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	WhoAmI(context.Context, *WhoAmIRequest) (*WhoAmIResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*Empty, error)
	AssignRole(context.Context, *AssignRoleRequest) (*Empty, error)
	DeactivateUser(context.Context, *DeactivateUserRequest) (*Empty, error)
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary adapts a typed method to grpc.MethodHandler. Interceptors see the
// typed request and response.
func unary[Req, Resp any, PReq interface {
	*Req
	message
}, PResp interface {
	*Resp
	message
}](fullMethod string, call func(AuthServiceServer, context.Context, PReq) (PResp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := PReq(new(Req))
		wire := dynamicpb.NewMessage(req.descriptor())
		if err := dec(wire); err != nil {
			return nil, err
		}
		req.readFrom(wire)

		if interceptor == nil {
			resp, err := call(srv.(AuthServiceServer), ctx, req)
			if err != nil {
				return nil, err
			}
			return encode[Resp](resp), nil
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, r any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, r.(PReq))
		}
		out, err := interceptor(ctx, req, info, handler)
		if err != nil {
			return nil, err
		}
		if resp, ok := out.(PResp); ok {
			return encode[Resp](resp), nil
		}
		return out, nil
	}
}

// encode treats a nil response as an empty message.
func encode[Resp any, PResp interface {
	*Resp
	message
}](resp PResp) *dynamicpb.Message {
	if resp == nil {
		resp = PResp(new(Resp))
	}
	return toProto(resp)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary(MethodPing, AuthServiceServer.Ping)},
		{MethodName: "Register", Handler: unary(MethodRegister, AuthServiceServer.Register)},
		{MethodName: "CheckUsername", Handler: unary(MethodCheckUsername, AuthServiceServer.CheckUsername)},
		{MethodName: "Login", Handler: unary(MethodLogin, AuthServiceServer.Login)},
		{MethodName: "Refresh", Handler: unary(MethodRefresh, AuthServiceServer.Refresh)},
		{MethodName: "Logout", Handler: unary(MethodLogout, AuthServiceServer.Logout)},
		{MethodName: "WhoAmI", Handler: unary(MethodWhoAmI, AuthServiceServer.WhoAmI)},
		{MethodName: "ChangePassword", Handler: unary(MethodChangePassword, AuthServiceServer.ChangePassword)},
		{MethodName: "AssignRole", Handler: unary(MethodAssignRole, AuthServiceServer.AssignRole)},
		{MethodName: "DeactivateUser", Handler: unary(MethodDeactivateUser, AuthServiceServer.DeactivateUser)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: FileName,
}
