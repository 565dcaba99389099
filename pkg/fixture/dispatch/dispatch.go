// Package dispatch routes intercepted API requests to mock handlers.
//
// Routes are tried in registration order; the first one whose method and URL
// pattern match wins. Registration order is therefore correctness-relevant:
// specific patterns must be registered before general ones.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/datakin/workbench/pkg/domain"
)

// ErrNoRoute is the dispatcher-level failure, distinct from anything a
// handler may return.
var ErrNoRoute = errors.New("no matching route")

// Forward sends the original request to the real backend. Handlers only use
// it through the real-backend-first decorator.
type Forward func(ctx context.Context) (*http.Response, error)

// Request is what a matched handler is invoked with.
type Request struct {
	Params Params

	// User is nil when the bearer token resolved to nobody. Handlers that
	// require an account must fail on their own.
	User *domain.User

	// Next forwards to the real backend; nil when none is configured.
	Next Forward
}

// Handler implements one route. It may return any JSON-marshalable value, an
// Upstream passthrough, or an error.
type Handler func(ctx context.Context, req *Request) (any, error)

// Upstream is a handler result that carries a real backend response through
// the dispatcher untouched.
type Upstream struct {
	Response *http.Response
}

// Route is one (method, pattern, handler) triple. Pattern is a regular
// expression matched against the path relative to the API root; it is
// compiled anchored at both ends.
type Route struct {
	Method  string
	Pattern string
	Handle  Handler
}

// Resolver turns a bearer token into a user, or reports that it cannot.
type Resolver interface {
	Resolve(token string) (domain.User, bool)
}

type compiledRoute struct {
	method  string
	pattern *regexp.Regexp
	handle  Handler
}

type Dispatcher struct {
	routes []compiledRoute
	auth   Resolver
}

// New compiles route tables into a dispatcher. Tables keep their given order.
func New(auth Resolver, tables ...[]Route) (*Dispatcher, error) {
	d := &Dispatcher{auth: auth}
	for _, table := range tables {
		for _, r := range table {
			pattern, err := regexp.Compile("^" + r.Pattern + "$")
			if err != nil {
				return nil, fmt.Errorf("route %s %s: %w", r.Method, r.Pattern, err)
			}
			d.routes = append(d.routes, compiledRoute{
				method:  strings.ToUpper(r.Method),
				pattern: pattern,
				handle:  r.Handle,
			})
		}
	}
	return d, nil
}

// Dispatch finds the first matching route and executes it.
//
// query and body are merged into the capture-group parameters, body last so
// it takes precedence. token is the raw bearer token, "" when absent.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	method string, path string,
	query map[string]string, body map[string]any,
	token string,
	next Forward,
) (any, error) {
	path = strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/")
	method = strings.ToUpper(method)

	for _, r := range d.routes {
		if r.method != method {
			continue
		}
		groups := r.pattern.FindStringSubmatch(path)
		if groups == nil {
			continue
		}

		params := Params{}
		for nth, g := range groups[1:] {
			params[strconv.Itoa(nth+1)] = g
		}
		for k, v := range query {
			params[k] = v
		}
		for k, v := range body {
			params[k] = v
		}

		req := &Request{Params: params, Next: next}
		if user, ok := d.resolve(token); ok {
			req.User = &user
		}

		return r.handle(ctx, req)
	}

	return nil, fmt.Errorf("%w: %s %s", ErrNoRoute, method, path)
}

func (d *Dispatcher) resolve(token string) (domain.User, bool) {
	if token == "" || d.auth == nil {
		return domain.User{}, false
	}
	return d.auth.Resolve(token)
}
