// Package review is the interactive triage engine: the gesture classifier,
// the lock sequencer that serializes exactly one committed action per card,
// the dispatcher that maps a committed direction to lifecycle and
// knowledge-base operations, and the Session that drives the whole commit
// cycle for the active card.
package review
