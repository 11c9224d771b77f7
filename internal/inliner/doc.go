// Package inliner embeds remote images into an HTML fragment as base64 data
// URIs so a document can be laid out without network access.
//
// Retrievals run concurrently with a bounded errgroup; each task writes only
// its own result slot, and results are applied in document order once all
// tasks finish. A retrieval that fails for any reason (network error, non-2xx
// status, timeout, cancellation) turns its <img> into a placeholder span and
// adds a warning, so the number of image positions never changes.
package inliner
