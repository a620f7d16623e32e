package crossnode

import (
	"context"

	"google.golang.org/grpc"
)

// ChatServiceServer 节点间通知的服务端接口
type ChatServiceServer interface {
	NotifyKickUser(context.Context, *KickUserReq) (*KickUserRsp, error)
	NotifyAddFriend(context.Context, *AddFriendReq) (*AddFriendRsp, error)
	NotifyAuthFriend(context.Context, *AuthFriendReq) (*AuthFriendRsp, error)
	NotifyTextChatMsg(context.Context, *TextChatMsgReq) (*TextChatMsgRsp, error)
}

// unaryMethod 生成一元方法描述
func unaryMethod[Req any, Rsp any](name string, call func(ChatServiceServer, context.Context, *Req) (*Rsp, error)) grpc.MethodDesc {
	fullMethod := "/" + serviceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ChatServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ChatServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc chat.ChatService 描述
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ChatServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("NotifyKickUser", ChatServiceServer.NotifyKickUser),
		unaryMethod("NotifyAddFriend", ChatServiceServer.NotifyAddFriend),
		unaryMethod("NotifyAuthFriend", ChatServiceServer.NotifyAuthFriend),
		unaryMethod("NotifyTextChatMsg", ChatServiceServer.NotifyTextChatMsg),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chat.proto",
}

// RegisterChatServiceServer 注册服务
func RegisterChatServiceServer(s grpc.ServiceRegistrar, srv ChatServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
