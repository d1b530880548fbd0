package domain

import "time"

// EnvFingerprint is captured at INIT and re-captured on resume; drift
// between the two blocks resume unless forcibly overridden (spec.md §3).
type EnvFingerprint struct {
	SchemaVersion int `json:"schema_version"`

	LanguageRuntimeVersion string            `json:"language_runtime_version"`
	LockfileHash           string            `json:"lockfile_hash"`
	WorkerBinaryVersions   map[string]string `json:"worker_binary_versions"`

	CreatedAt time.Time `json:"created_at"`
}

// DriftReport lists the fields that differ between two fingerprints.
type DriftReport struct {
	Fields []string `json:"fields"`
}

// HasDrift reports whether the report carries any drifted fields.
func (d DriftReport) HasDrift() bool {
	return len(d.Fields) > 0
}

// Diff compares the fingerprint against a previously captured one and
// returns the set of fields that changed.
func (f EnvFingerprint) Diff(prior EnvFingerprint) DriftReport {
	var fields []string
	if f.LanguageRuntimeVersion != prior.LanguageRuntimeVersion {
		fields = append(fields, "language_runtime_version")
	}
	if f.LockfileHash != prior.LockfileHash {
		fields = append(fields, "lockfile_hash")
	}
	for name, version := range f.WorkerBinaryVersions {
		if prior.WorkerBinaryVersions[name] != version {
			fields = append(fields, "worker_binary_versions."+name)
		}
	}
	for name := range prior.WorkerBinaryVersions {
		if _, ok := f.WorkerBinaryVersions[name]; !ok {
			fields = append(fields, "worker_binary_versions."+name)
		}
	}
	return DriftReport{Fields: fields}
}
