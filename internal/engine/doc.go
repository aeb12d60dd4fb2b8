// Package engine implements the factlog store: pattern matching, conjunctive
// evaluation, forward-chaining rules and live queries over (entity,
// attribute, value) facts.
//
// ARCHITECTURE:
//
// Two partitions:
// Base holds asserted facts; Derived holds facts produced by rules. Only
// Base is mutated from outside. Derived is rebuilt from scratch by every
// recompute, so retraction cascades without any truth maintenance.
//
// Recompute and fixpoint:
// Every mutation (Assert, Retract, rule registration or removal) bumps the
// epoch, clears Derived and starts a recompute goroutine. A recompute runs
// passes until one adds nothing new:
// 1. Snapshot Base ∪ Derived
// 2. For every rule, evaluate its patterns against the snapshot
// 3. Invoke the callback once per matching context, all concurrently
// 4. Wait for every callback of the pass
// 5. If the epoch moved, abandon silently
// 6. Add produced facts to Derived; loop if any were new, else settle
//
// Epoch supersession:
// A recompute started at epoch E only commits while the epoch is still E.
// When a newer mutation arrives, the older recompute's context is cancelled
// and whatever it computes afterwards is discarded. Only the latest
// recompute notifies subscribers.
//
// Subscriptions:
// Live queries run immediately when no recompute is in flight and again on
// every settle. Deliveries are serialized and never go backwards in epoch.
//
// CRITICAL PATTERNS:
//
// Determinism: results of a pass are reduced in rule registration order,
// then binding order, regardless of which callback finished first.
//
// Termination: rules that keep producing new facts never settle. Opt into
// WithMaxPasses to bound a recompute.
package engine
