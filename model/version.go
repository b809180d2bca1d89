package model

// RemoteVersion is one object version as reported by the storage listing.
// UploadTimestamp is epoch milliseconds, matching what the provider reports.
type RemoteVersion struct {
	ID              string
	Name            string
	Size            int64
	UploadTimestamp int64
}

// Candidate is a version selected for deletion. Candidates are passed by
// value and never mutated after enumeration, so they are safe to hand to
// concurrent workers.
type Candidate = RemoteVersion
