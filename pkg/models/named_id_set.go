package models

// NamedIdSetEntityRef resolves the entity a named id set points at:
// <databaseId>[.<schemaName>][.<entityId>]. Empty segments are skipped.
func NamedIdSetEntityRef(set Object) string {
	ref := set.String("databaseId")
	for _, seg := range []string{set.String("schemaName"), set.String("entityId")} {
		if seg != "" {
			ref += "." + seg
		}
	}
	return ref
}

// NamedIdSetKey is the identity used when merging named id sets:
// <providerType>[.<databaseId>][.<schemaName>][.<entityId>].
func NamedIdSetKey(set Object) string {
	key := set.String("providerType")
	for _, seg := range []string{set.String("databaseId"), set.String("schemaName"), set.String("entityId")} {
		if seg != "" {
			key += "." + seg
		}
	}
	return key
}
