package calibration

// Percentage maps a raw sensor reading onto a zone's calibration axis, where
// dry reads as 0% and wet reads as 100%, clamped to [0,100]. Capacitive and
// resistive probes disagree on which end of the scale is larger, so the
// interpolation is purely algebraic: dry > wet and dry < wet both work.
func Percentage(raw, dry, wet int) int {
	if dry == wet {
		return 0
	}
	pct := (raw - dry) * 100 / (wet - dry)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
