package compress

import "fmt"

type Compress interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

const (
	KindNop    = "nop"
	KindGZip   = "gzip"
	KindLZ4    = "lz4"
	KindBrotli = "brotli"
)

// New returns the codec registered under the given kind name.
func New(kind string) (Compress, error) {
	switch kind {
	case KindNop, "":
		return NewNop(), nil
	case KindGZip:
		return NewGZip(), nil
	case KindLZ4:
		return NewLZ4(), nil
	case KindBrotli:
		return NewBrotli(), nil
	default:
		return nil, fmt.Errorf("unknown compression kind %q", kind)
	}
}
