package server

import (
	"bytes"
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/describe"
	"github.com/mj1618/desktop-narrator/internal/output"
	"github.com/mj1618/desktop-narrator/internal/platform/scripted"
	"github.com/mj1618/desktop-narrator/internal/session"
)

var errNoScript = errors.New("either script or source is required")

// render serializes v in the requested format for an MCP response.
func (s *Server) render(params map[string]any, v any) (*mcp.CallToolResult, error) {
	format := s.cfg.Format
	if raw := stringParam(params, "format", ""); raw != "" {
		f, err := output.ParseFormat(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		format = f
	}
	var buf bytes.Buffer
	if err := output.FprintFormat(&buf, format, v); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) script(params map[string]any) (*scripted.Script, error) {
	if path := stringParam(params, "script", ""); path != "" {
		return s.cache.Load(path)
	}
	if src := stringParam(params, "source", ""); src != "" {
		return scripted.Parse([]byte(src), "yaml")
	}
	return nil, errNoScript
}

// newSession opens a session for the script named by params.
func (s *Server) newSession(params map[string]any, opts ...session.Option) (*session.Session, error) {
	script, err := s.script(params)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With(zap.String("script", script.Name))
	base := []session.Option{
		session.WithLogger(logger),
		session.WithHistory(s.cfg.History),
		session.WithPace(s.cfg.Pace),
		session.WithDescriber(describe.New(describe.WithLanguage(s.cfg.Language), describe.WithLogger(logger))),
	}
	return session.New(script, append(base, opts...)...)
}

func (s *Server) handleReplay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	sess, err := s.newSession(params, session.WithStopOnError(boolParam(params, "stop-on-error", true)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer sess.Close()

	res, err := sess.Run(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if res.Error != "" {
		var buf bytes.Buffer
		if err := output.FprintFormat(&buf, output.FormatYAML, res); err != nil {
			return mcp.NewToolResultError(res.Error), nil
		}
		return mcp.NewToolResultError(buf.String()), nil
	}
	return s.render(params, res)
}

func (s *Server) handleDescribe(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	id := stringParam(params, "id", "")
	if id == "" {
		return mcp.NewToolResultError("id is required"), nil
	}
	sess, err := s.newSession(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer sess.Close()

	if boolParam(params, "after-replay", false) {
		if _, err := sess.Run(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	res, err := sess.Describe(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.render(params, res)
}

func (s *Server) handleTree(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	sess, err := s.newSession(params)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer sess.Close()
	return s.render(params, sess.Tree())
}

func stringParam(params map[string]any, key, defaultVal string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return defaultVal
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return defaultVal
	}
	return s
}

func boolParam(params map[string]any, key string, defaultVal bool) bool {
	v, ok := params[key]
	if !ok || v == nil {
		return defaultVal
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return defaultVal
	}
	return b
}
