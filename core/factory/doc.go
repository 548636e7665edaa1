// Package factory provides a generic registry used to build pluggable modules
// (metrics sinks, courier networks) from configuration.
package factory
