// Package export writes generated articles to files.
//
// Supported formats are Markdown (with optional YAML front matter), plain
// text, HTML rendered from the Markdown with goldmark, and xlsx workbooks
// built with excelize. Failures are reported in Result rather than as Go
// errors so callers can return them to clients unchanged.
package export
