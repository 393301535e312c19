package config

const (
	// TopicArtifactIngested is the NSQ topic announcing artifacts that were
	// durably written to the storage root.
	TopicArtifactIngested = "artifact.ingested"
)
