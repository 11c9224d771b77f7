// Package pipeline implements the Markdown-to-HTML conversion pipeline.
//
// A Renderer runs these stages in order:
//   - Markdown preprocessing (line normalization, math spans lifted out)
//   - Markdown to HTML fragment conversion via goldmark
//   - Sanitization with bluemonday
//   - Math typesetting with KaTeX
//   - Link enhancement (heading scroll targets, external links)
//
// BuildDocument wraps a fragment in the self-contained document sent to the
// render service. Image inlining and PDF production live in other packages.
package pipeline
