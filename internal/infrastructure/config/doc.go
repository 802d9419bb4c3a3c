// Package config handles loading and validating BA console configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (BACONSOLE_*)
//   - Validation of required fields
//
// Security Considerations:
//   - MQTT passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/baconsole.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Backend.BaseURL)
package config
