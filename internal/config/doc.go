// Package config provides configuration management for dagocrew.
//
// Configuration is loaded from environment variables using the env package.
// All configuration values have sensible defaults for development use; only
// the LLM API key has to be set before a crew can run.
//
// Redis is optional. When REDIS_ADDR is empty, run state and lifecycle
// events are kept in memory for the lifetime of the process.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	target, err := cfg.LLM.Planning("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("planning with %s/%s\n", target.Provider, target.Model)
package config
