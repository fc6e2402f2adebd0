// Package walk is the graph traversal engine.
//
// A Walker runs one Execute per input set in three stages. CREATE resolves
// or creates an output node for every reachable input and deduplicates
// entities by natural key. UPDATE copies values and links associations,
// either directly or through the action queue depending on the variant.
// The queue is flushed into the persister between UPDATE and POSTLOGIC.
// POSTLOGIC only runs hooks and is enabled by the settings.
//
// Variants are a closed set: read, modify, clone, migrate and query. Each
// Execute owns its arena, registry, visited set and queue, so a Walker may
// serve concurrent Execute calls.
package walk
