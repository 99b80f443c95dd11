// Package reassembly rebuilds messages from fragments that may arrive out of
// order, duplicated, or not at all.
//
// A Cache holds one reassembly context per message ID. The context is created
// by the first fragment seen for that ID and fixes the fragment count for its
// lifetime. Fragments are copied straight into their final position in the
// output buffer, so the completed message is returned without a join step.
//
// A context leaves the cache exactly once: when its last missing fragment
// arrives, or when Sweep finds it idle for longer than the threshold. Ingest
// never evicts; callers decide when to sweep.
//
// A Cache is not safe for concurrent use. It is owned by a single transport.
package reassembly
