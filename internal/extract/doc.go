// Package extract pulls a bounded amount of text out of incoming files so the
// classifier has more than a file name to work with.
//
// Plain-text formats are read directly; PDFs go through pdftotext and images
// through tesseract. Extraction never fails loudly: unsupported types, missing
// tools and tool errors all yield ("", false) and the file is classified on
// its name alone.
package extract
