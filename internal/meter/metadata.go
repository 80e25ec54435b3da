package meter

// ReservedMetadataPrefix is prepended to every user-supplied metadata key
// before the key is merged into the instance properties, so user keys can
// never shadow the well-known resource fields.
const ReservedMetadataPrefix = "user_metadata."

// AddReservedMetadata merges user-supplied metadata into target under the
// reserved prefix. Anything that is not a string-keyed mapping (absent value,
// list, scalar) is ignored. Colliding keys in target are overwritten. Only
// target is mutated.
func AddReservedMetadata(raw any, target map[string]any) {
	metadata, ok := raw.(map[string]any)
	if !ok {
		return
	}
	for k, v := range metadata {
		target[ReservedMetadataPrefix+k] = v
	}
}
