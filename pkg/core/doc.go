// Package core defines the shared language of the sftprep system.
//
// This package contains:
//   - Dataset families and their fixed-schema record types
//   - Typed field accessors and schemas used by every transform
//   - Corpus and Table, the in-memory and storage-boundary collections
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
