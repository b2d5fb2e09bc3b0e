// Package cache implements the local media cache. Every remote asset URL is
// reduced to a deterministic file name; a hit is served without any network
// access and a miss triggers a single bounded-timeout download written with
// temp-file + rename semantics so partial bodies are never visible. Any
// failure along the way degrades to the well-known default asset instead of
// propagating to the caller, because one broken thumbnail must not take down
// a whole listing response.
package cache
