// Package pdfdoc lays out a rendered HTML fragment as a PDF document.
//
// Translate walks the fragment and produces a Document: metadata, page
// margins and a list of blocks (headings, paragraphs, lists, tables, code,
// blockquotes, images, rules) made of styled inline runs. Write serializes a
// Document with fpdf using a fixed style table.
//
// Fonts are the PDF core fonts, so text is limited to the Windows-1252
// repertoire. Math is printed as its TeX source.
package pdfdoc
