// Package docstore is a file-backed, human-readable document store for
// small-to-medium structured datasets that must stay diffable and mergeable
// in a version-control system.
//
// # Overview
//
// Every document is a self-describing JSON-like value identified by a
// (type, id) pair and serialized as a deterministically formatted text file:
//
//	<root>/<type>/<id>.json
//
// Reading and re-writing the same document through [Store] always produces
// byte-identical output: keys are sorted (or ordered per [Config.KeyOrder]),
// indentation and line endings are fixed, and there is always exactly one
// trailing newline. That property is what keeps the store diff-friendly.
//
// # Queries and indexes
//
// [Store.Query] evaluates a MongoDB-style filter (`$eq`, `$in`, `$gt`, ...)
// over a type's documents, with optional sort/skip/limit/projection.
// [Store.EnsureIndex] builds an on-disk equality index for a (type, field)
// pair; subsequent queries that filter on an indexed field skip the full
// scan.
//
// # Sidecar layout
//
// When [Config.EnableSidecar] is set, a document's primary record and its
// markdown attachments (referenced from an "md" field) live together under
// one directory (`<root>/<type>/<id>/`), and writes to any of them commit
// atomically as a group via a directory transaction.
//
// # Concurrency
//
// Store assumes a single writing process (see [Config]); concurrent
// external mutation is only defended against, via TOCTOU-guarded reads and
// a pre-commit re-validation in the directory transaction. Within one
// process, [Store] is safe for concurrent use by multiple goroutines: the
// read/parse cache and each index are independently synchronized.
package docstore
