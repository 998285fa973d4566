// Package cluster provides SWIM-family cluster membership.
//
// This package handles:
//   - The membership table and its merge semantics
//   - SYNC/SYNC-ACK anti-entropy with seed members
//   - Fusing sync, failure-detector and gossip inputs into one ordered
//     update pipeline
//   - Decay timers for suspected and shut-down members
//   - A subscribable stream of membership updates
package cluster
