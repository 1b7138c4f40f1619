package geomedea

import "fmt"

// wktPoint renders a coordinate in a WKT-like "POINT(lng lat)" form, used
// only for Stringer/debug output -- not a geometry format bridge (those are
// explicitly out of scope, see spec.md Section 1 and SPEC_FULL.md Section B).
func wktPoint(p LngLat) string {
	return fmt.Sprintf("POINT(%g %g)", p.LngDegrees(), p.LatDegrees())
}
