package domain

import "runtime"

// Zero overwrites every buffer with zeros. Call it on DEKs, KEKs and plaintext as soon as
// they are no longer needed.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
		runtime.KeepAlive(b)
	}
}
