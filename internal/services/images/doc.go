// Package images finds and downloads source photos for scenes. Search goes
// through a configurable provider chain (Pexels first, Serper as fallback by
// default) and downloads run under a deadline with a byte cap so a single slow
// or hostile host cannot stall a render.
package images
