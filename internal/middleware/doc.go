// Package middleware provides the HTTP middleware chain for media-converter:
//
//   - Logger: access log in W3C extended format
//   - Metrics: Prometheus request metrics labeled by route template
//   - Compression: gzip for JSON and frontend text assets
//
// Every wrapper implements Unwrap so handlers can still reach write
// deadlines through http.ResponseController when streaming artifacts.
package middleware
