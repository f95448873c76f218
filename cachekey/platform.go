package cachekey

import (
	"encoding/json"
	"sort"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Platform identifies a target platform. It is a thin alias over the OCI
// image-spec platform descriptor so cache manifests can embed it directly
// in image configs without conversion.
type Platform = ocispec.Platform

// canonicalPlatformJSON renders p deterministically: OSFeatures is sorted
// before encoding so two logically-equal platforms with differently-ordered
// feature lists fingerprint identically. Struct field order is otherwise
// fixed by encoding/json, which already gives a stable byte sequence.
func canonicalPlatformJSON(p Platform) ([]byte, error) {
	normalized := p
	if len(p.OSFeatures) > 0 {
		normalized.OSFeatures = append([]string(nil), p.OSFeatures...)
		sort.Strings(normalized.OSFeatures)
	}
	return json.Marshal(normalized)
}
