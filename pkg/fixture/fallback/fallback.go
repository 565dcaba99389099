// Package fallback implements the real-backend-first decorator.
//
// For authenticated non-simulated users every wrapped route forwards the
// request to the real backend first; the mock handler only answers when the
// backend says the user is not there (401/403) or is itself broken (5xx).
// Demo users skip the backend entirely. One route table serves both.
package fallback

import (
	"context"
	"net/http"

	"github.com/datakin/workbench/pkg/fixture/dispatch"
)

// UpstreamStatusParam carries the failed backend status into the mock
// handler's parameters.
const UpstreamStatusParam = "upstreamStatus"

// Wrap decorates one handler with the real-first behavior.
//
// The gate is strict: only 401, 403 and 5xx responses (and transport
// failures, which are indistinguishable from a dead backend) fall back to
// the mock. Any other backend response, success or failure, is passed
// through untouched.
func Wrap(h dispatch.Handler) dispatch.Handler {
	return func(ctx context.Context, req *dispatch.Request) (any, error) {
		if req.User == nil || req.User.Simulated || req.Next == nil {
			return h(ctx, req)
		}

		resp, err := req.Next(ctx)
		if err != nil {
			return h(ctx, req)
		}
		if !fallbackStatus(resp.StatusCode) {
			return dispatch.Upstream{Response: resp}, nil
		}

		resp.Body.Close()
		req.Params[UpstreamStatusParam] = resp.StatusCode
		return h(ctx, req)
	}
}

// WrapAll decorates a whole route table.
func WrapAll(routes []dispatch.Route) []dispatch.Route {
	wrapped := make([]dispatch.Route, len(routes))
	for nth, r := range routes {
		r.Handle = Wrap(r.Handle)
		wrapped[nth] = r
	}
	return wrapped
}

func fallbackStatus(code int) bool {
	return code == http.StatusUnauthorized ||
		code == http.StatusForbidden ||
		http.StatusInternalServerError <= code
}
