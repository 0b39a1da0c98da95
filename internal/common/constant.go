// Package common contains shared constants and sentinel errors used across
// tokenkeeper components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// AuthorizationHeaderName is accepted as a fallback carrier in the
// "Bearer <token>" form.
const AuthorizationHeaderName = "authorization"

// RefreshTokenSize is the number of random bytes behind an opaque refresh
// token value (hex encoded on the wire).
const RefreshTokenSize = 32
