// Package imaging normalizes arbitrary source photos into video frames:
// decode, cover-scale with center crop to the exact frame size, then a
// compression ladder walk that trades width and JPEG quality for byte size.
// Going over budget on the lowest rung is a soft failure; that rung's
// encoding is kept and flagged rather than aborting the render.
package imaging
