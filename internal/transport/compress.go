package transport

import (
	"github.com/klauspost/compress/zstd"
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(1<<20))
)

// compressFrame zstd-compresses an encoded wire.Message before it goes
// on the wire; Blocks/Transactions frames carrying a full batch are the
// ones this actually shrinks, the teacher applies the same codec to its
// (much smaller) coinbase tx field.
func compressFrame(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, nil)
}

// decompressFrame reverses compressFrame. Frames that don't start with
// the zstd magic are returned as-is, for forward compatibility.
func decompressFrame(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != 0x28 || data[1] != 0xB5 || data[2] != 0x2F || data[3] != 0xFD {
		return data, nil
	}
	return zstdDecoder.DecodeAll(data, nil)
}
