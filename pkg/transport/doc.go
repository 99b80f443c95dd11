// Package transport sends and receives whole messages over UDP.
//
// Each message is split into fragments that fit a fixed MTU, sent as
// independent datagrams, and reassembled on the receiving side regardless of
// arrival order or duplication. There is no acknowledgment, retransmission
// or ordering between messages: a message is either delivered byte-exact or
// not at all.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│        Application Message     │
//	├────────────────────────────────┤
//	│   Fragment Header (32B) + Data │
//	├────────────────────────────────┤
//	│              UDP               │
//	├────────────────────────────────┤
//	│              IPv4              │
//	└────────────────────────────────┘
//
// # Server and Client
//
// A Server binds a local endpoint and exchanges messages with any peer; the
// sender of each received message is reported so a reply can be addressed.
// A Client is associated with one remote endpoint fixed at construction.
//
// Both offer three receive variants:
//   - TryReceive performs one non-blocking read
//   - Receive blocks until a message completes or the context ends
//   - ReceiveTimeout blocks for at most the given duration in total
//
// # Idle Reassemblies
//
// Fragments of messages that never complete stay in the reassembly cache
// until swept. Callers may call Sweep themselves; with Config.IdleTimeout set,
// the receive path sweeps every Config.SweepInterval on the caller's
// goroutine.
//
// # Concurrency
//
// A Server or Client is owned by one goroutine. No method is safe for
// concurrent use.
package transport
