// Package workspacecfg resolves per-workspace verification settings.
//
// Settings live as key-value rows in workspace_config_entries; a missing
// row means "use the global default". The resolver parses and clamps the
// stored strings into typed values, so a hand-edited or corrupted row can
// never push the verifier outside its safe ranges.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package workspacecfg
