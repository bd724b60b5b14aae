package cache

import (
	"strconv"
	"strings"
)

const (
	GlobalKeyPrefix = "openlet"
)

// GenerateCacheKey generates a cache key for a given service, object type, and identifier.
// If paramsKey are provided, they are joined by "_" and appended to the cache key.
func GenerateCacheKey(serviceName, objectType, identifier string, paramsKey ...string) string {
	baseKey := strings.Join([]string{GlobalKeyPrefix, serviceName, objectType, identifier}, ":")
	if len(paramsKey) > 0 {
		return strings.Join([]string{baseKey, strings.Join(paramsKey, "_")}, ":")
	}
	return baseKey
}

// DispatchClaimKey identifies one stage run for one record version.
func DispatchClaimKey(recordID string, version int64, stage string) string {
	return GenerateCacheKey("pipeline", "claim", recordID, strconv.FormatInt(version, 10), stage)
}

// OCRResultKey identifies a cached extraction for a set of page images under one model.
func OCRResultKey(model, imagesHash string) string {
	return GenerateCacheKey("ocr", "text", imagesHash, model)
}
