// Package versioning parses dataset version tokens and resolves them to
// concrete dataset versions.
//
// A token is an optional leading "v" followed by one to three dot-separated
// segments, each either a non-negative integer or "*":
//
//	1.2      exact major.minor, greatest patch wins
//	1.2.3    exact
//	v2.*     greatest 2.x.y
//	*        greatest version of the dataset
//
// Resolution is a pure function of the token and the version set. A
// malformed token and a token that matches nothing are reported the same
// way by [Resolve]; callers that need the difference call [Parse] first.
package versioning
