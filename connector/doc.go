// Package connector provides the pluggable external-action layer: a Registry
// of named connectors behind a uniform execute/validate/test contract.
//
// The registry stamps execution duration and timestamps itself so connectors
// cannot misreport latency, and converts connector errors and panics into a
// failed Result instead of propagating them into the engine.
package connector
