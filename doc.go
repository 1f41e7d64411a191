// Package main provides the entry point for the LendKeeper equipment-lending
// backend. It runs a Fiber web server exposing a JSON REST API for managing
// products, physical product instances, loans, volunteer activity and user
// permissions, with gorm for data persistence and an append-only audit trail
// recorded for every request.
package main
