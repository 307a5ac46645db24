// Package config defines the sensitivity model and the tunable threshold
// table that parameterize the detection and fusion pipeline.
//
// # Sensitivity
//
// Users pick one of three ordinal levels (Fast, Balanced, Thorough); each
// maps to a scalar in [0, 1]. Every sensitivity-dependent threshold in the
// pipeline is derived from that scalar, so a single knob controls how
// permissive the whole system is.
//
// # Tuning
//
// Tuning holds every pipeline constant in one value constructed by
// DefaultTuning. Components receive the Tuning they were built with and
// never consult globals. A YAML override file can be loaded with
// LoadTuning; unspecified fields keep their defaults and out-of-range
// values reject the whole file.
//
// # Model Weights
//
// The ensemble weight table is exhaustive over the closed detector-role
// set (high-accuracy, fast-approximate). There is no string-keyed lookup
// and therefore no silent default weight for an unmatched model name.
package config
