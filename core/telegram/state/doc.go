// Package state keeps per-user conversation sessions and dispatches updates to
// the handler bound to the user's current step.
package state
