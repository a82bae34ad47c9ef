// Package config loads walletd's YAML configuration.
//
// Configuration is a single YAML file. ${VAR_NAME} patterns anywhere in
// the file are expanded from the environment before parsing, and duration
// fields are written as Go duration strings ("3s", "1m30s").
//
// Example:
//
//	server:
//	  http_addr: "127.0.0.1:8432"
//
//	database:
//	  path: "~/.local/share/walletd/wallet.db"
//
//	remote_sync:
//	  enabled: true
//	  redis_url: "${WALLETD_REDIS_URL}"
//	  sync_timeout: "3s"
//
//	wallet:
//	  popup_command: ["wallet-ui", "--popup"]
//
//	logging:
//	  level: "info"
//	  format: "text"
package config
