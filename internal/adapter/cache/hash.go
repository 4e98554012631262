package cache

import (
	"github.com/minio/highwayhash"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Hash returns the 64-bit HighwayHash of data.
func Hash(data []byte) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	if _, err := h.Write(data); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

func embeddingKey(model, text string) (uint64, error) {
	data := make([]byte, 0, len(model)+1+len(text))
	data = append(data, model...)
	data = append(data, 0)
	data = append(data, text...)
	return Hash(data)
}
