package crossnode

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tieba-chat/internal/constants"
	corelog "tieba-chat/internal/core/log"
	"tieba-chat/internal/dispatch"
)

// Server 接收其他节点的通知
//
// 每个通知被转换成节点内部消息投递到路由队列，由消费协程统一处理，
// 本地会话表因此只有一个写入者。
type Server struct {
	submitter dispatch.Submitter
	logger    corelog.Logger
}

var _ ChatServiceServer = (*Server)(nil)

// NewServer 创建通知服务端
func NewServer(submitter dispatch.Submitter, logger corelog.Logger) *Server {
	return &Server{
		submitter: submitter,
		logger:    corelog.OrDefault(logger),
	}
}

func (s *Server) submit(msgID constants.MsgID, req any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "marshal %s: %v", msgID, err)
	}
	if err := s.submitter.Submit(dispatch.NewEnvelope(nil, msgID, payload)); err != nil {
		s.logger.Warnf("CrossNodeServer: submit %s failed: %v", msgID, err)
		return status.Errorf(codes.Unavailable, "node shutting down: %v", err)
	}
	return nil
}

func (s *Server) NotifyKickUser(_ context.Context, req *KickUserReq) (*KickUserRsp, error) {
	s.logger.Infof("CrossNodeServer: kick request for uid %d", req.UID)
	if err := s.submit(constants.MsgInternalKickUser, req); err != nil {
		return nil, err
	}
	return &KickUserRsp{UID: req.UID}, nil
}

func (s *Server) NotifyAddFriend(_ context.Context, req *AddFriendReq) (*AddFriendRsp, error) {
	if err := s.submit(constants.MsgInternalAddFriend, req); err != nil {
		return nil, err
	}
	return &AddFriendRsp{ApplyUID: req.ApplyUID, ToUID: req.ToUID}, nil
}

func (s *Server) NotifyAuthFriend(_ context.Context, req *AuthFriendReq) (*AuthFriendRsp, error) {
	if err := s.submit(constants.MsgInternalAuthFriend, req); err != nil {
		return nil, err
	}
	return &AuthFriendRsp{FromUID: req.FromUID, ToUID: req.ToUID}, nil
}

func (s *Server) NotifyTextChatMsg(_ context.Context, req *TextChatMsgReq) (*TextChatMsgRsp, error) {
	if err := s.submit(constants.MsgInternalTextChat, req); err != nil {
		return nil, err
	}
	return &TextChatMsgRsp{FromUID: req.FromUID, ToUID: req.ToUID, TextMsgs: req.TextMsgs}, nil
}

// NewGRPCServer 创建注册了通知服务的 gRPC 服务器
func NewGRPCServer(srv ChatServiceServer, logger corelog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	logger = corelog.OrDefault(logger)
	opts = append(opts, grpc.ChainUnaryInterceptor(recoveryInterceptor(logger)))

	gs := grpc.NewServer(opts...)
	RegisterChatServiceServer(gs, srv)
	return gs
}

func recoveryInterceptor(logger corelog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (rsp any, err error) {
		defer func() {
			if p := recover(); p != nil {
				logger.Errorf("CrossNodeServer: %s panicked: %v\n%s", info.FullMethod, p, debug.Stack())
				err = status.Errorf(codes.Internal, "panic in %s", info.FullMethod)
			}
		}()
		return handler(ctx, req)
	}
}
