// Package obs abstracts the encoder's obs-websocket control surface. The
// gateway dials through this package; everything above it only sees the
// Client interface.
package obs
