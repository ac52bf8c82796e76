// Package visualize produces the live spectrum feed shown while speech
// plays.
//
// A Sampler polls the output's analysis tap at display rate and runs each
// snapshot through Enhance, which boosts the voice band and remaps the
// result onto -60..0 dB. Frames with nothing above -70 dB are replaced by a
// flat -90 dB frame, and a run always ends with one flat -100 dB frame so a
// display never freezes on the last loud spectrum.
package visualize
