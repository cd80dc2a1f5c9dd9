// Package auth supplies bearer credentials to outbound requests and owns the
// refresh-once-on-401 retry policy.
//
// The policy lives in a Transport (an http.RoundTripper decorator) rather
// than inline at call sites, so every client call gets identical behavior:
//
//	client := &http.Client{Transport: auth.NewTransport(source, nil)}
//
// A 401 response triggers exactly one token refresh followed by exactly one
// replay of the original request. A second 401, or a refresh failure, is
// terminal and propagates to the caller, which rolls back the same way as any
// other failure. Bounding the retry to one keeps a misbehaving backend from
// producing an infinite refresh loop.
package auth
