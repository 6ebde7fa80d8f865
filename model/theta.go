package model

// ThetaLayout records which flat positions of a parameter vector theta map
// onto which slots of a Gaussian system's Z/H/T/R matrices, mirroring the
// original source's Z_ind/H_ind/T_ind/R_ind parameter-index bookkeeping.
// Indices are positions into the flattened, column-major matrix storage of
// the corresponding system quantity.
type ThetaLayout struct {
	ZInd []int
	HInd []int
	TInd []int
	RInd []int
	// XBeta marks the span of theta, if any, occupied by regression
	// coefficients.
	XBetaStart, XBetaLen int
	// Phi marks the span of theta, if any, occupied by a dispersion
	// parameter for non-Gaussian observation models.
	PhiStart, PhiLen int
}

// Len returns the total number of free parameters the layout describes.
func (tl ThetaLayout) Len() int {
	return len(tl.ZInd) + len(tl.HInd) + len(tl.TInd) + len(tl.RInd) + tl.XBetaLen + tl.PhiLen
}

// Pack assembles a flat theta vector from the named slots, reading current
// values out of z, h, t, r (flattened column-major), xbeta and phi.
func Pack(layout ThetaLayout, z, h, tm, r, xbeta, phi []float64) []float64 {
	theta := make([]float64, 0, layout.Len())
	for _, i := range layout.ZInd {
		theta = append(theta, z[i])
	}
	for _, i := range layout.HInd {
		theta = append(theta, h[i])
	}
	for _, i := range layout.TInd {
		theta = append(theta, tm[i])
	}
	for _, i := range layout.RInd {
		theta = append(theta, r[i])
	}
	if layout.XBetaLen > 0 {
		theta = append(theta, xbeta[layout.XBetaStart:layout.XBetaStart+layout.XBetaLen]...)
	}
	if layout.PhiLen > 0 {
		theta = append(theta, phi[layout.PhiStart:layout.PhiStart+layout.PhiLen]...)
	}
	return theta
}

// Unpack scatters theta's entries back into z, h, tm, r, xbeta, phi
// according to layout, overwriting only the slots the layout names.
func Unpack(layout ThetaLayout, theta []float64, z, h, tm, r, xbeta, phi []float64) {
	pos := 0
	for _, i := range layout.ZInd {
		z[i] = theta[pos]
		pos++
	}
	for _, i := range layout.HInd {
		h[i] = theta[pos]
		pos++
	}
	for _, i := range layout.TInd {
		tm[i] = theta[pos]
		pos++
	}
	for _, i := range layout.RInd {
		r[i] = theta[pos]
		pos++
	}
	if layout.XBetaLen > 0 {
		copy(xbeta[layout.XBetaStart:layout.XBetaStart+layout.XBetaLen], theta[pos:pos+layout.XBetaLen])
		pos += layout.XBetaLen
	}
	if layout.PhiLen > 0 {
		copy(phi[layout.PhiStart:layout.PhiStart+layout.PhiLen], theta[pos:pos+layout.PhiLen])
	}
}
