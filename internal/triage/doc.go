// Package triage provides the business boundary for Ward's patient triage
// system. It defines the Engine (feature extraction, classifier blending,
// safety overrides, explainability), the Service (patient registration,
// versioned persistence, async alert fan-out), the Store interface, and the
// domain models.
package triage
