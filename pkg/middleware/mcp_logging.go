package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxLoggedArgumentLength truncates long string arguments in MCP logs.
const maxLoggedArgumentLength = 200

// MCPRequestLogger returns middleware that logs MCP tool calls with their arguments,
// duration and outcome. Pass nil logger to disable logging.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var call rpcCall
			if err := json.Unmarshal(body, &call); err != nil {
				logger.Debug("Failed to parse MCP request JSON", zap.Error(err))
			}

			recorder := &bodyRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			fields := []zap.Field{
				zap.String("method", call.Method),
				zap.String("tool", call.Params.Name),
				zap.Any("arguments", truncateArguments(call.Params.Arguments)),
				zap.Duration("duration", time.Since(start)),
			}

			var reply rpcReply
			if err := json.Unmarshal(recorder.body.Bytes(), &reply); err != nil {
				logger.Debug("MCP call", fields...)
				return
			}
			switch {
			case reply.Error != nil:
				logger.Debug("MCP call failed", append(fields,
					zap.Int("error_code", reply.Error.Code),
					zap.String("error_message", reply.Error.Message))...)
			case reply.Result.IsError:
				logger.Debug("MCP tool returned an error result", fields...)
			default:
				logger.Debug("MCP call", fields...)
			}
		})
	}
}

type rpcCall struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type rpcReply struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type bodyRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func truncateArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && len(s) > maxLoggedArgumentLength {
			v = s[:maxLoggedArgumentLength] + "..."
		}
		out[k] = v
	}
	return out
}
