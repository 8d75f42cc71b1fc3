// Package main hosts the subburn CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration (dotenv, TOML file, flags),
// builds the structured logger, and hands jobs to internal/pipeline. Status,
// cache and config commands are thin renderers over internal packages.
package main
