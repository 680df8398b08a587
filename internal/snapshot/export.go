package snapshot

// ExportSchemaVersion is written into every export header.
const ExportSchemaVersion = "1"

// ExportHeader identifies a tabstash export file.
type ExportHeader struct {
	TabstashExport bool   `json:"_tabstash_export" yaml:"_tabstash_export"`
	SchemaVersion  string `json:"schema_version" yaml:"schema_version"`
	ExportedAt     int64  `json:"exported_at" yaml:"exported_at"`
}

// ExportDocument is the on-disk shape of an exported snapshot, in JSON or YAML.
type ExportDocument struct {
	Header ExportHeader `json:"header" yaml:"header"`
	State  *SavedState  `json:"snapshot" yaml:"snapshot"`
}
