// Package proxy forwards gateway requests to registered downstream services.
//
// # Identity headers
//
// Downstream services trust X-User-Id and X-Session-Id as the authenticated caller.
// The dispatcher is the only writer of these headers: copies supplied by the client are
// removed from every forwarded request, and they are set only from a verified identity.
// Services must therefore be reachable only through the gateway.
//
// # Forwarding
//
// Requests are forwarded once, never retried, with the body streamed and the routing
// prefix /gateway/{name}-service removed from the path. Hop-by-hop headers are dropped
// in both directions. Each service has its own timeout and circuit breaker.
package proxy
