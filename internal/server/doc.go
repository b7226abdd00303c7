// Package server implements the HTTP API: the screening endpoint plus
// health, configuration, statistics and Prometheus metrics endpoints.
package server
