// Package handoff provides concrete Handoff implementations for use with
// the stratumflow scheduler: a plain single-consumer VecHandoff and a
// fan-out TeeingHandoff. These are collaborators, not part of the
// scheduler core — stratumflow only ever depends on the narrow
// stratumflow.Handoff / stratumflow.Teeable contracts.
package handoff
