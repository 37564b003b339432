// Package component defines the lifecycle contract shared by chunkscribe's
// infrastructure pieces (run ledger database, export storage, telemetry).
//
// Components are registered with a Registry, started in registration order
// before a batch run and stopped in reverse order afterwards.
package component
