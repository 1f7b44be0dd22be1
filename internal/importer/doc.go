// Package importer turns secrets found in markdown notes, dotenv files and
// bundles into candidates for the vault.
//
// Each source produces a variant of Item. Normalize maps every variant to a
// Candidate carrying the name, value, provider and provenance the record
// store expects. Merge policy (skip or overwrite existing names) belongs to
// the caller.
package importer
