// Package report renders analysis results: gonum plots, a gofpdf report,
// CSV tables and a Prometheus textfile with the headline numbers.
package report
