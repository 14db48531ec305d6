// Package renderstatus turns the host's loosely structured render job status
// into a typed snapshot.
//
// Hosts disagree on field names (Progress, JobPercentage,
// CompletionPercentage, PercentComplete), on encodings (numbers, "37%"
// strings, milliseconds, free text), and on how completion is signalled.
// Every alias and fallback lives here so the pipeline only ever sees
// Snapshot values.
package renderstatus
