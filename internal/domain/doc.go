// Package domain models industrial-disaster simulations: the facilities they
// originate from, the environmental context they run in, and the risk
// profiles they produce.
//
// # Calamity Types
//
// Four disaster variants are supported, each with its own magnitude unit:
//
//	flood       meters of water above base level
//	fire        kg of burning material
//	explosion   kg of TNT equivalent
//	earthquake  Richter magnitude
//
// Any other type string is rejected before a model runs.
//
// # Atmospheric Stability
//
// Fire and explosion dispersion is parameterized by the Pasquill-Gifford
// stability class, a letter A-F describing turbulence intensity (A = very
// unstable, F = moderately stable). When neither the weather provider nor
// the caller supplies a class, one is derived from wind speed and time of
// day (daytime is 06:00-18:00 UTC), defaulting to D (neutral) for winds of
// 5 m/s and above.
//
// # Degraded-Mode Fallbacks
//
// Provider unavailability is a recovered condition, never a failure:
//
//	facility miss  → synthetic facility at (45.0, 10.0) with a generic
//	                 1000 kg "Mixed contaminants" inventory
//	weather miss   → deterministic latitude-based placeholder conditions
//	terrain miss   → elevation 100 m, slope 5°
//
// Fallback values are marked with Source = "synthetic" / "default" so
// downstream consumers can tell observed context from substituted context.
//
// # Task Lifecycle
//
// Every simulation is tracked as a Task moving through
//
//	QUEUED → PROCESSING → COMPLETED | FAILED
//
// Transitions are one-directional; terminal states are never re-entered.
// Progress percentages are coarse stage checkpoints (10/40/80/100), not a
// true completion ratio.
//
// # Geometry
//
// Fallout footprints are closed-ring GeoJSON polygons (first vertex ==
// last vertex) built from a 32-edge circular approximation with the flat
// 111 km-per-degree conversion. Coordinates are [longitude, latitude].
package domain
