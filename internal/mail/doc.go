// Package mail holds the thread and draft domain model, the Store interface
// (persistence), and the Controller (draft lifecycle and edit side-state).
package mail
