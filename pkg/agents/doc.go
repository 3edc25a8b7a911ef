// Package agents provides the built-in trip producers.
//
// They are deterministic placeholders that honour the producer call contracts
// (route endpoints, one forecast entry per day, set-like gear list) without
// calling any external data source.
package agents
