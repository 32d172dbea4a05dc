package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ObjectID computes the deterministic 12-hex-digit content address for a
// catalog entity: the first 6 bytes of SHA-256("sourceName:objectType:fqname").
func ObjectID(sourceName string, objectType string, fqname string) string {
	h := sha256.Sum256([]byte(sourceName + ":" + objectType + ":" + fqname))
	return hex.EncodeToString(h[:6])
}

// Fqname joins schema and name with "." when schema is non-empty.
func Fqname(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

func trimDefinition(s string) string {
	return strings.TrimSpace(s)
}
