package helpers

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	sha256 "github.com/minio/sha256-simd"
)

// SerializeSHA256 returns the lowercase hex SHA-256 digest of txt.
func SerializeSHA256(txt string) string {
	return SerializeSHA256Bytes([]byte(txt))
}

func SerializeSHA256Bytes(data []byte) string {
	shaWriter := sha256.New()
	shaWriter.Write(data)
	return hex.EncodeToString(shaWriter.Sum(nil))
}

// CanonicalJSON encodes v with object keys sorted at every level and numbers
// kept exactly as the first encoding produced them, so values that hold the
// same fields encode to the same bytes whatever their Go representation.
func CanonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// FormatHashrate renders hashes over elapsed as h/s, Kh/s, Mh/s or Gh/s.
func FormatHashrate(hashes uint64, elapsed time.Duration) string {
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		seconds = 1
	}
	round := func(n float64) float64 {
		return math.Floor(n*100) / 100
	}

	hashrate := float64(hashes) / seconds
	switch {
	case hashrate < 1000:
		return fmt.Sprintf("%.2f h/s", round(hashrate))
	case hashrate < 1000*1000:
		return fmt.Sprintf("%.2f Kh/s", round(hashrate/1000))
	case hashrate < 1000*1000*1000:
		return fmt.Sprintf("%.2f Mh/s", round(hashrate/1000/1000))
	default:
		return fmt.Sprintf("%.2f Gh/s", round(hashrate/1000/1000/1000))
	}
}
