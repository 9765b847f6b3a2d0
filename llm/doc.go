// Package llm normalizes calls to multiple AI backends behind one Provider
// interface and applies an ordered fallback chain so a single provider outage
// does not break every workflow.
//
// The Manager is constructed once at process start, providers are registered
// during initialization, and the instance is shared read-only by all runs.
// HTTP adapters for the supported provider families live under
// llm/providers/...; HeuristicProvider backs degraded mode.
package llm
