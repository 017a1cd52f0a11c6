// Package component defines the lifecycle interface shared by the engine
// and validation contexts.
//
// A Registry starts components in registration order and stops them in
// reverse order. A bridge context owns one registry per initialization,
// holding the engine for the configured issuer; a host may in turn
// register the context itself, since it implements Component.
package component
