// Package config loads the analyzer configuration file (config.yaml).
//
// Top-level sections:
//   - import: pad_limit (forward fill of short gaps)
//   - cycle: channel and threshold driving ON/OFF detection
//   - distribution: columns, min, max, bins, gate_prefixes, gate_channel_prefix
//   - module_check: match (column substring), lookahead
//   - span: optional start/end sample window and columns for span statistics
//   - report: pdf, csv_dir, metrics_file, plots
//
// Load(path) reads the YAML file, applies defaults (range 0 to 150 in 150 bins,
// pad limit 3, lookahead 1, Iout_PM module match), then validates required
// fields and value ranges.
//
// Watch(ctx, onChange, paths...) uses fsnotify to report writes to the config
// file or the input log so the host can re-run the analysis.
package config
