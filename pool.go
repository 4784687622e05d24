// pool.go - Only for internal buffer reuse
package iso8583

import "github.com/valyala/bytebufferpool"

var bufferPool bytebufferpool.Pool

// Only pool buffers; messages have their own pool.
func getBuffer() *bytebufferpool.ByteBuffer {
	return bufferPool.Get()
}

func putBuffer(buf *bytebufferpool.ByteBuffer) {
	bufferPool.Put(buf)
}
