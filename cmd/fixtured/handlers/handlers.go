// Package handlers bridges echo and the mock dispatcher: request decoding,
// artificial latency, error mapping, and process progress streaming.
package handlers

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"

	apierr "github.com/datakin/workbench/pkg/api/types/errors"
	"github.com/datakin/workbench/pkg/domain"
	kerr "github.com/datakin/workbench/pkg/domain/errors"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
	"github.com/datakin/workbench/pkg/fixture/simulator"
	"github.com/datakin/workbench/pkg/utils/echoutil"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Latency is the artificial delay band put in front of every mock response,
// to keep the UI honest about loading states.
type Latency struct {
	Min time.Duration
	Max time.Duration
}

func (l Latency) wait() {
	if l.Max <= 0 {
		return
	}
	span := l.Max - l.Min
	d := l.Min
	if 0 < span {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	time.Sleep(d)
}

// APIHandler answers every intercepted API call through the dispatcher.
//
// backendRoot, when non-empty, is where the real-first decorator forwards
// requests; "" leaves every route mock-only.
func APIHandler(
	dsp *dispatch.Dispatcher, backendRoot string, latency Latency,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := c.Request()
		path := strings.TrimPrefix(r.URL.Path, "/api")

		query := map[string]string{}
		for k, vs := range c.QueryParams() {
			if 0 < len(vs) {
				query[k] = vs[0]
			}
		}

		body := map[string]any{}
		if r.Body != nil && strings.HasPrefix(
			r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON,
		) {
			if err := codec.NewDecoder(r.Body).Decode(&body); err != nil {
				return apierr.BadRequest("request body is not json", err)
			}
		}

		var next dispatch.Forward
		if backendRoot != "" {
			dest := backendRoot + r.URL.Path
			if r.URL.RawQuery != "" {
				dest += "?" + r.URL.RawQuery
			}
			next = func(ctx context.Context) (*http.Response, error) {
				return echoutil.CopyRequest(ctx, dest, r)
			}
		}

		result, err := dsp.Dispatch(
			r.Context(), r.Method, path, query, body, bearerToken(r), next,
		)
		if err != nil {
			return asHTTPError(err)
		}

		if up, ok := result.(dispatch.Upstream); ok {
			defer up.Response.Body.Close()
			return echoutil.CopyResponse(&c, up.Response)
		}

		// the delay band applies to synthetic answers only; real backend
		// responses already took their own time
		latency.wait()
		return c.JSON(http.StatusOK, result)
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(h, "Bearer ")
	if !found {
		return ""
	}
	return token
}

// asHTTPError maps domain failures onto the uniform error response.
func asHTTPError(err error) *echo.HTTPError {
	var httpError *echo.HTTPError
	if errors.As(err, &httpError) {
		return httpError
	}

	switch {
	case errors.Is(err, dispatch.ErrNoRoute):
		return apierr.NewErrorMessage(
			http.StatusNotFound, "no route matches the request",
			apierr.WithError(err),
		)
	case errors.Is(err, kerr.ErrMissing):
		return apierr.NotFound("check the id in the request", err)
	case errors.Is(err, kerr.ErrConflict):
		return apierr.NewErrorMessage(
			http.StatusConflict, "the request conflicts with existing data",
			apierr.WithError(err),
		)
	case errors.Is(err, kerr.ErrDenied):
		return apierr.Forbidden("you may not touch this resource", err)
	default:
		return apierr.BadRequest("the request cannot be served", err)
	}
}

// ProcessStreamHandler streams progress events of one process as
// server-sent events until the process reaches a terminal state or the
// client goes away. Watching registers the client with the simulator's
// audience bookkeeping, so fully abandoned processes get dropped.
func ProcessStreamHandler(sim *simulator.Simulator) echo.HandlerFunc {
	return func(c echo.Context) error {
		processID := c.Param("id")

		events, detach := sim.Watch(processID)
		defer detach()

		resp := c.Response()
		resp.Header().Set(echo.HeaderContentType, "text/event-stream")
		resp.Header().Set("Cache-Control", "no-cache")
		resp.WriteHeader(http.StatusOK)
		resp.Flush()

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				data, err := codec.Marshal(ev)
				if err != nil {
					return err
				}
				if _, err := resp.Write(
					[]byte("data: " + string(data) + "\n\n"),
				); err != nil {
					return err
				}
				resp.Flush()

				if p, ok := ev.Payload.(domain.Process); ok && p.Status.Terminal() {
					return nil
				}
			}
		}
	}
}
