// Package config loads service configuration from defaults, an optional YAML
// file and AGENTRUN_* environment variables, in that precedence order.
package config
