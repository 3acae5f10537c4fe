// Package series holds the sample types shared by the parser, the analysis
// engine and the report writers.
//
// A Value is a nullable reading: missing samples are carried explicitly
// instead of as NaN so a gap can never be mistaken for a real zero or leak
// into a sum. A Table is the normalized, time-ordered import the engine
// borrows read-only; every derived sequence is a fresh copy.
package series
