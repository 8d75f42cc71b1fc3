// Package translate turns subtitle dialogue into another language through a
// chat-completion model.
//
// A Translator sends numbered batches of lines in one prompt, parses the
// numbered reply, and retries failed attempts with exponential backoff. When
// retries run out the batch degrades to its source text and the
// Outcome says so; translation failures never abort a document.
package translate
