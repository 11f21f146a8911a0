package permission

import (
	"context"
	"errors"

	"github.com/HerbHall/netsense/internal/auth"
	"github.com/HerbHall/netsense/internal/channel"
)

// ChannelPermission is the channel clients answer prompts on.
const ChannelPermission = "netsense/permission"

// Channel error codes.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeAlreadyResolved = "ALREADY_RESOLVED"
	CodeUnauthorized    = "UNAUTHORIZED"
)

type permissionResult struct {
	RequestID string `json:"requestId"`
	Granted   *bool  `json:"granted"`
	Token     string `json:"token,omitempty"`
}

// RegisterChannel binds the permission channel to m. When verifier is
// enabled a decision must carry a valid token argument.
func RegisterChannel(reg *channel.Registry, m *Manager, verifier *auth.Verifier) error {
	h := &channelHandler{manager: m, verifier: verifier}
	return reg.Register(ChannelPermission, h.handle)
}

type channelHandler struct {
	manager  *Manager
	verifier *auth.Verifier
}

func (h *channelHandler) handle(ctx context.Context, call channel.MethodCall) channel.Reply {
	switch call.Method {
	case "onRequestPermissionsResult":
		return h.resolve(ctx, call)
	case "getPendingRequests":
		return channel.Success(h.manager.Pending())
	default:
		return channel.NotImplemented()
	}
}

func (h *channelHandler) resolve(ctx context.Context, call channel.MethodCall) channel.Reply {
	var args permissionResult
	if err := call.DecodeArgs(&args); err != nil {
		return channel.Error(channel.CodeBadArgs, err.Error(), nil)
	}
	if args.RequestID == "" || args.Granted == nil {
		return channel.Error(channel.CodeBadArgs, "requestId and granted are required", nil)
	}
	if h.verifier.Enabled() {
		if _, err := h.verifier.Verify(args.Token); err != nil {
			return channel.Error(CodeUnauthorized, err.Error(), nil)
		}
	}

	err := h.manager.Resolve(ctx, args.RequestID, *args.Granted)
	switch {
	case err == nil:
		view, _ := h.manager.Get(args.RequestID)
		return channel.Success(view)
	case errors.Is(err, ErrRequestNotFound):
		return channel.Error(CodeNotFound, err.Error(), map[string]string{"requestId": args.RequestID})
	case errors.Is(err, ErrAlreadyResolved):
		return channel.Error(CodeAlreadyResolved, err.Error(), map[string]string{"requestId": args.RequestID})
	default:
		return channel.Error(channel.CodeInternal, err.Error(), nil)
	}
}
