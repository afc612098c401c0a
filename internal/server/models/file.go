package models

import "time"

// FileRecord describes an uploaded file. The encrypted content itself lives
// in blob storage under StorageKey; no key material is ever recorded here.
type FileRecord struct {
	// ID is the server-generated file id (UUID).
	ID string
	// OwnerID is the user who uploaded the file and the only one who may see it.
	OwnerID string
	// Filename is the original name as supplied by the client.
	Filename string
	// SizeBytes is the plaintext length.
	SizeBytes int64
	// ContentType is the declared media type.
	ContentType string
	// UploadedAt is set when the record is created.
	UploadedAt time.Time
	// StorageKey is the blob store key of the ciphertext.
	StorageKey string
}
