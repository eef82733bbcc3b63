// Package engine schedules pairwise alignments on a bounded worker pool and
// hands completed results back in completion order. It never imports
// profiler, writers, server or app; keep it domain-only.
//
// Tasks carry caller metadata of any type M, returned untouched with the
// result, so the engine does not need to know what an alignment is for.
package engine
