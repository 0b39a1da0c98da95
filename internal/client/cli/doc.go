// Package cli provides the interactive tokenkeeper command-line client.
//
// It wires configuration, the gRPC client and a small REPL. The token pair
// lives only in memory for the session; expired access tokens are rotated
// transparently by the client. A background watcher pings the server and
// flips the prompt between online and offline.
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
package cli
