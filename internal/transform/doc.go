// Package transform turns a simulation log into the time-stamped, styled
// features an animated timeline map plays back. Conversion is pure: the same
// steps always produce the same features, in step order, with nodes before
// packets before events inside a step.
package transform
