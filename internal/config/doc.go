// Package config loads the portal configuration.
//
// Settings come from, in increasing priority: built-in defaults,
// portal.toml (or portal.json), a .env file and PORTAL_* environment
// variables. Nested sections use their own prefix, e.g.
// PORTAL_API_BASE_URL or PORTAL_CREDENTIALS_BACKEND.
//
// # Configuration File Structure
//
//	app_name = "Linkportal"
//	address  = ":8080"
//	language = "en"
//
//	[api]
//	base_url = "https://sho.rt/api"
//	timeout  = "10s"
//
//	[credentials]
//	backend   = "redis"
//	redis_url = "redis://localhost:6379/0"
//	ttl       = "24h"
//
//	[websocket]
//	max_sessions = 10000
//
//	[metrics]
//	enabled = true
//	tracing = false
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address)
package config
