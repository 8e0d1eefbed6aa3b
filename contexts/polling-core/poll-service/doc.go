// Package pollservice implements the poll lifecycle inside the polling-core
// context.
//
// The module owns poll creation, the draft/active/closed state machine, and
// the per-poll voting-method and privacy configuration consumed by the ballot,
// tabulation, and privacy services. It keeps business rules in the
// application/domain layers and isolates infrastructure behind ports and
// adapters.
package pollservice
