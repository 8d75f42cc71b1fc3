// Package language provides language code normalization and display names.
//
// Configured source and target languages may be given as ISO 639-1/639-2
// codes, BCP 47 tags, or English words; they are reduced to ISO 639-1 and
// rendered as English names inside translation prompts.
package language
