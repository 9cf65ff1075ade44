package mcp

import (
	"context"
	"strings"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"
	srv "github.com/mark3labs/mcp-go/server"
)

func newMCPHooks(logger logSDK.Logger) *srv.Hooks {
	if logger == nil {
		return nil
	}

	hooks := &srv.Hooks{}

	hooks.AddBeforeAny(func(ctx context.Context, id any, method mcp.MCPMethod, message any) {
		fields := hookLogFields(ctx, id, method)
		if message != nil {
			fields = append(fields, zap.String("request", compactHookPayload(message)))
		}
		logger.Debug("mcp request received", fields...)
	})

	hooks.AddOnSuccess(func(ctx context.Context, id any, method mcp.MCPMethod, message any, result any) {
		fields := hookLogFields(ctx, id, method)
		if result != nil {
			fields = append(fields, zap.String("response", compactHookPayload(result)))
		}
		logger.Info("mcp request succeeded", fields...)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		fields := hookLogFields(ctx, id, method)
		if message != nil {
			fields = append(fields, zap.String("request", compactHookPayload(message)))
		}
		fields = append(fields, zap.Error(err))
		if shouldDowngradeMCPErrorLog(method, err) {
			logger.Debug("mcp request failed (non-critical)", fields...)
			return
		}
		logger.Error("mcp request failed", fields...)
	})

	hooks.AddOnRegisterSession(func(ctx context.Context, session srv.ClientSession) {
		logger.Info("mcp session registered", zap.String("session_id", session.SessionID()))
	})

	hooks.AddOnUnregisterSession(func(ctx context.Context, session srv.ClientSession) {
		logger.Info("mcp session unregistered", zap.String("session_id", session.SessionID()))
	})

	return hooks
}

// shouldDowngradeMCPErrorLog reports whether a request failure is an expected client probe
// for a capability this server does not offer.
func shouldDowngradeMCPErrorLog(method mcp.MCPMethod, err error) bool {
	if err == nil {
		return false
	}
	errText := strings.ToLower(err.Error())
	switch method {
	case mcp.MethodResourcesList, mcp.MethodResourcesTemplatesList:
		return strings.Contains(errText, "resources not supported")
	case mcp.MethodPromptsList:
		return strings.Contains(errText, "prompts not supported")
	default:
		return false
	}
}

func hookLogFields(ctx context.Context, id any, method mcp.MCPMethod) []zap.Field {
	fields := []zap.Field{
		zap.Any("request_id", id),
		zap.String("method", string(method)),
	}

	if session := srv.ClientSessionFromContext(ctx); session != nil {
		fields = append(fields, zap.String("session_id", session.SessionID()))
	}

	return fields
}
