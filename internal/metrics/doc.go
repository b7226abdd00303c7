// Package metrics provides Prometheus metrics for the screening service.
// All Record methods accept a nil receiver, which disables recording; this
// keeps metrics optional in tests without a registry.
package metrics
