// Package config handles configuration loading for pulse-server.
//
// Configuration is loaded from YAML files with environment variable
// expansion. Fields left unset keep sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	server:
//	  http_addr: "${PULSE_HTTP_ADDR}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	broadcast:
//	  metrics_interval: "5s"
//	  agent_interval: "3s"
//	reconnect:
//	  base_delay: "1s"
//	  max_delay: "5s"
//	  max_attempts: 5
//
// # Usage
//
//	cfg, err := config.Load("/etc/pulse/server.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
