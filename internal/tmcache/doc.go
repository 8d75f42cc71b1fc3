// Package tmcache persists a translation memory in SQLite.
//
// Entries are keyed by source language, target language, model, and the exact
// source line, so a re-run over the same subtitle file (or a file sharing
// lines with an earlier one) reuses prior translations instead of calling the
// model again. Only successful model translations are stored.
package tmcache
