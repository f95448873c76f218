// Package manifest builds and parses the cache's OCI-style manifest blobs:
// the typed (snapshot/environment/metadata) layer layout, canonical media
// types, and the well-known annotations that carry compression and
// provenance metadata.
package manifest

import (
	"time"

	"github.com/jmgilman/buildcache/cachekey"
	"github.com/jmgilman/buildcache/compression"
	"github.com/jmgilman/buildcache/errors"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// SchemaVersion is the only manifest schema version this cache writes or
// reads.
const SchemaVersion = 2

// MediaType identifies a cache manifest blob.
const MediaType = "application/vnd.container-build.cache.manifest.v2+json"

// Canonical layer media types, suffixed with the compression algorithm when
// the layer is compressed (see Layer.descriptorMediaType).
const (
	MediaTypeSnapshot    = "application/vnd.container-build.snapshot.v1+json"
	MediaTypeEnvironment = "application/vnd.container-build.environment.v1+json"
	MediaTypeMetadata    = "application/vnd.container-build.metadata.v1+json"
)

// Well-known annotation keys.
const (
	AnnotationCreated         = "com.apple.container-build.created"
	AnnotationCacheVersion    = "com.apple.container-build.cache-version"
	AnnotationCompression     = "com.apple.container-build.compression"
	AnnotationUncompressedLen = "com.apple.container-build.uncompressed-size"
)

// LayerType identifies which component of a CachedResult a layer holds.
type LayerType string

const (
	LayerSnapshot    LayerType = "snapshot"
	LayerEnvironment LayerType = "environment"
	LayerMetadata    LayerType = "metadata"
)

// baseMediaType returns the uncompressed media type for t, or "" if t is
// not a recognized layer type.
func (t LayerType) baseMediaType() string {
	switch t {
	case LayerSnapshot:
		return MediaTypeSnapshot
	case LayerEnvironment:
		return MediaTypeEnvironment
	case LayerMetadata:
		return MediaTypeMetadata
	default:
		return ""
	}
}

// Layer pairs an OCI descriptor with the cache-specific layer type it
// represents. A layer is present in a manifest iff its source component
// was non-empty at put time.
type Layer struct {
	Descriptor ocispec.Descriptor `json:"descriptor"`
	Type       LayerType          `json:"type"`
}

// Config embeds everything needed to reconstruct the cache key a manifest
// was written under, without consulting the index.
type Config struct {
	CacheKey      cachekey.CacheKey      `json:"cacheKey"`
	OperationType cachekey.OperationType `json:"operationType"`
	Platform      cachekey.Platform      `json:"platform"`
	BuildVersion  string                 `json:"buildVersion"`
	CreatedAt     time.Time              `json:"createdAt"`
}

// Manifest is the cache's on-disk representation of a single cached
// operation's result.
type Manifest struct {
	SchemaVersion int                 `json:"schemaVersion"`
	MediaType     string              `json:"mediaType"`
	Config        Config              `json:"config"`
	Layers        []Layer             `json:"layers"`
	Annotations   map[string]string   `json:"annotations"`
	Subject       *ocispec.Descriptor `json:"subject,omitempty"`
}

// BuildParams carries everything Build needs beyond the layers themselves.
type BuildParams struct {
	Key           cachekey.CacheKey
	OperationType cachekey.OperationType
	BuildVersion  string
	KeyVersion    string
	CreatedAt     time.Time
}

// Build assembles a Manifest from params and layers. The snapshot layer, if
// present, is ordered first; callers are expected to have already omitted
// layers whose source component was empty.
func Build(params BuildParams, layers []Layer) *Manifest {
	ordered := orderLayers(layers)

	return &Manifest{
		SchemaVersion: SchemaVersion,
		MediaType:     MediaType,
		Config: Config{
			CacheKey:      params.Key,
			OperationType: params.OperationType,
			Platform:      params.Key.Platform,
			BuildVersion:  params.BuildVersion,
			CreatedAt:     params.CreatedAt,
		},
		Layers: ordered,
		Annotations: map[string]string{
			AnnotationCreated:      params.CreatedAt.UTC().Format(time.RFC3339),
			AnnotationCacheVersion: params.KeyVersion,
		},
	}
}

// orderLayers returns a copy of layers with the snapshot layer (if any)
// moved first, preserving the relative order of the rest.
func orderLayers(layers []Layer) []Layer {
	ordered := make([]Layer, 0, len(layers))
	var snapshot *Layer
	for i, l := range layers {
		if l.Type == LayerSnapshot && snapshot == nil {
			snapshot = &layers[i]
			continue
		}
		ordered = append(ordered, l)
	}
	if snapshot != nil {
		ordered = append([]Layer{*snapshot}, ordered...)
	}
	return ordered
}

// NewLayerDescriptor builds a Layer's descriptor given its encoded (and
// possibly compressed) digest/size, the algorithm actually used, and the
// uncompressed size it was derived from.
func NewLayerDescriptor(layerType LayerType, digest cachekey.Digest, compressedSize int64, algorithm compression.Algorithm, uncompressedSize int64) Layer {
	mediaType := layerType.baseMediaType()
	if algorithm != "" && algorithm != compression.None {
		mediaType += "+" + string(algorithm)
	}
	return Layer{
		Type: layerType,
		Descriptor: ocispec.Descriptor{
			MediaType: mediaType,
			Digest:    ociDigest(digest),
			Size:      compressedSize,
			Annotations: map[string]string{
				AnnotationCompression:     string(algorithm),
				AnnotationUncompressedLen: formatInt(uncompressedSize),
			},
		},
	}
}

// Validate checks the structural invariants a decoded manifest must
// satisfy before the cache trusts it.
func (m *Manifest) Validate() error {
	if m == nil {
		return errors.New(errors.CodeManifestUnreadable, "manifest is nil")
	}
	if m.SchemaVersion != SchemaVersion {
		return errors.Newf(errors.CodeManifestUnreadable, "unsupported manifest schema version: %d", m.SchemaVersion)
	}
	if m.MediaType != MediaType {
		return errors.Newf(errors.CodeManifestUnreadable, "unexpected manifest media type: %s", m.MediaType)
	}
	for i, l := range m.Layers {
		if l.Descriptor.MediaType == "" {
			return errors.Newf(errors.CodeManifestUnreadable, "layer %d has empty media type", i)
		}
		if l.Descriptor.Size < 0 {
			return errors.Newf(errors.CodeManifestUnreadable, "layer %d has negative size: %d", i, l.Descriptor.Size)
		}
	}
	return nil
}

// LayerDigest extracts a cachekey.Digest from an OCI descriptor's digest
// string.
func LayerDigest(descriptor ocispec.Descriptor) (cachekey.Digest, error) {
	return cachekey.ParseDigest(string(descriptor.Digest))
}

// LayerAlgorithm reports the compression algorithm a layer descriptor was
// annotated with.
func LayerAlgorithm(descriptor ocispec.Descriptor) compression.Algorithm {
	return compression.Algorithm(descriptor.Annotations[AnnotationCompression])
}
