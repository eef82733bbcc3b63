// Package writers turns profiling results into serialized reports.
//
// Design:
//   - Writers own all presentation knowledge (CSV, JSON, JSONL).
//   - Engine and profiler stay domain-only.
//   - JSON/JSONL go through pkg/api (v1) for a stable wire format.
//   - Every input is accounted for: written, or listed in Result.Failed.
package writers
