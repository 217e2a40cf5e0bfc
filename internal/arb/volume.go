package arb

// volumeFor returns a pair's primary volume when present and non-negative.
func volumeFor(details NormalizedDetails, id CurrencyID) *float64 {
	p, ok := details.Pairs[id]
	if !ok {
		return nil
	}
	v := p.VolumePrimaryValue
	if !isFinite(v) || v < 0 {
		return nil
	}
	return &v
}

// ComputeVolumeMin reports the route's throughput as the minimum of its two
// legs' volumes. Min is nil unless both legs are known.
func ComputeVolumeMin(details NormalizedDetails, kind RouteKind) VolumeResult {
	divLeg := volumeFor(details, Divine)
	otherLeg := volumeFor(details, kind.Other())

	res := VolumeResult{DivLeg: divLeg, OtherLeg: otherLeg}
	if divLeg != nil && otherLeg != nil {
		m := *divLeg
		if *otherLeg < m {
			m = *otherLeg
		}
		res.Min = &m
	}
	return res
}
