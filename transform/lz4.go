package transform

import (
	"github.com/pierrec/lz4/v3"

	"github.com/julea-project/julea/cmn"
)

// encodeLZ4 block-compresses input, trimming the worst-case-sized
// destination buffer (lz4.CompressBlockBound) down to the bytes actually
// written (§4.4, §10: block rather than frame compression so the
// allocating-buffer signature can size dst up front).
func encodeLZ4(input []byte) ([]byte, error) {
	if len(input) == 0 {
		return []byte{}, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(input)))
	n, err := lz4.CompressBlock(input, dst, nil)
	if err != nil {
		return nil, cmn.Wrapf(cmn.ErrInputInvalid, "transform: lz4 compress: %v", err)
	}
	if n == 0 {
		// dst was sized via CompressBlockBound, so this indicates the
		// block codec itself rejected the input rather than a capacity
		// problem we can retry our way out of.
		return nil, cmn.Wrapf(cmn.ErrBackendOpFailed, "transform: lz4 compress produced no output for %d-byte input", len(input))
	}
	return dst[:n], nil
}

// decodeLZ4 block-decompresses input into a buffer sized by hintSize,
// the caller-supplied original (decoded) length — required because the
// LZ4 block format does not self-describe its decompressed size.
func decodeLZ4(input []byte, hintSize int) ([]byte, error) {
	if len(input) == 0 {
		return []byte{}, nil
	}
	if hintSize < 0 {
		return nil, cmn.Wrapf(cmn.ErrInputInvalid, "transform: lz4 decompress needs a non-negative hintSize")
	}
	dst := make([]byte, hintSize)
	n, err := lz4.UncompressBlock(input, dst)
	if err != nil {
		return nil, cmn.Wrapf(cmn.ErrInputInvalid, "transform: lz4 decompress: %v", err)
	}
	return dst[:n], nil
}
