// Package client is the tokenkeeper gRPC client.
//
// GRPCClient keeps the current token pair in memory for the lifetime of the
// process. Every authenticated call carries the access token in the
// access_token metadata key. When the server answers Unauthenticated with
// "token expired", the client rotates the pair once through Refresh and
// retries the call. Concurrent callers share a single rotation, because a
// refresh token can only be redeemed once.
//
// gRPC status codes are mapped to the sentinel errors in errors.go so callers
// can match them with errors.Is.
package client
