// Package gapdetect implements content-gap detection: it extracts
// problematic signals from the interaction log, clusters them by a cheap
// deterministic signature, synthesizes gap candidates through the reasoning
// service, and merges candidates into persisted content-gap records.
//
// A detection run is request-scoped and stateless. Synthesis calls for
// different clusters run concurrently under a bounded limit; merge writes
// are serialized after all synthesis completes so a cancelled run never
// leaves partial writes behind.
package gapdetect
