package types

// ObjectMeta describes an archive uploaded to object storage.
type ObjectMeta struct {
	Size        int64
	ContentType string

	// SHA256 is the hex digest of the body. It is stored with the object so
	// a downloaded snapshot can be checked against the export log.
	SHA256 string

	// Metadata is attached as user metadata next to the digest.
	Metadata map[string]string
}
