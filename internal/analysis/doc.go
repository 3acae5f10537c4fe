// Package analysis is the signal segmentation and time-weighted statistics
// engine of the life-test analyzer.
//
// The leaf functions are pure and work on borrowed slices:
//   - DetectCrossings finds OFF/ON transitions of a channel against a threshold.
//   - Classify names the boundary configuration (StartOn, EndOff, StartOff,
//     FullyBracketed) of a crossing set.
//   - CountCycles integrates ON time and counts cycles, partial ones included.
//   - CompactTimeline removes OFF time from a timeline; its last value always
//     agrees with CountCycles on the same crossings.
//   - BuildDistribution builds a time-weighted histogram with an undefined
//     bucket and an optional gating channel.
//   - WeightedMean derives the summary row (mean bin, total hours).
//   - CheckModule flags sustained dropouts among three redundant sensors.
//
// Session owns an imported table and caches per-channel results; Import and
// Recompute are the only ways cached results are discarded.
package analysis
