package model

// Run statuses referenced by the engine.
const (
	ProcessStatusRunning   = "running"
	ProcessStatusCompleted = "completed"
	ProcessStatusFailed    = "failed"
)

// Extract statuses referenced by the engine.
const (
	ExtractStatusInitializing = "initializing"
	ExtractStatusReady        = "ready"
	ExtractStatusLoading      = "loading"
	ExtractStatusLoaded       = "loaded"
	ExtractStatusArchived     = "archived"
	ExtractStatusDeleted      = "deleted"
	ExtractStatusError        = "error"
)

// ErrorTypeFileError is the seeded, protected error type.
const ErrorTypeFileError = "File Error"

// Location type names.
const (
	LocationTypeLocal = "local filesystem"
	LocationTypeS3    = "s3"
)

// ProtectedProcessStatuses are the run statuses that cannot be deleted or renamed.
var ProtectedProcessStatuses = []string{
	ProcessStatusRunning,
	ProcessStatusCompleted,
	ProcessStatusFailed,
}

// ProtectedExtractStatuses are the extract statuses that cannot be deleted or renamed.
var ProtectedExtractStatuses = []string{
	ExtractStatusInitializing,
	ExtractStatusReady,
	ExtractStatusLoading,
	ExtractStatusLoaded,
	ExtractStatusArchived,
	ExtractStatusDeleted,
	ExtractStatusError,
}

// ProtectedErrorTypes are the error types that cannot be deleted or renamed.
var ProtectedErrorTypes = []string{ErrorTypeFileError}

// BlockingParentExtractStatuses are the parent states that keep a child extract out of loading.
var BlockingParentExtractStatuses = []string{
	ExtractStatusInitializing,
	ExtractStatusReady,
	ExtractStatusLoading,
}

// BlockingParentProcessStatuses are the parent run states that prevent a child run from starting.
var BlockingParentProcessStatuses = []string{
	ProcessStatusRunning,
	ProcessStatusFailed,
}

// IsFinishedRunStatus reports whether a run in this status gets an end date.
func IsFinishedRunStatus(status string) bool {
	return status == ProcessStatusCompleted || status == ProcessStatusFailed
}

// SeedFileType is a filetype inserted at setup.
type SeedFileType struct {
	Name      string
	Delimiter string
	Quote     string
	Escape    string
}

// SeedFileTypes are the filetypes inserted at setup.
var SeedFileTypes = []SeedFileType{
	{Name: "csv", Delimiter: ",", Quote: `"`, Escape: `\`},
	{Name: "tsv", Delimiter: "\t", Quote: `"`, Escape: `\`},
	{Name: "txt", Delimiter: "|", Quote: `"`, Escape: `\`},
	{Name: "json"},
	{Name: "parquet"},
	{Name: "avro"},
	{Name: "orc"},
}

// SeedCompressionTypes maps the compression types inserted at setup to their file extension.
var SeedCompressionTypes = []CompressionType{
	{CompressionTypeName: "gzip", CompressionTypeExtension: "gz"},
	{CompressionTypeName: "bzip2", CompressionTypeExtension: "bz2"},
	{CompressionTypeName: "zip", CompressionTypeExtension: "zip"},
	{CompressionTypeName: "snappy", CompressionTypeExtension: "snappy"},
	{CompressionTypeName: "lz4", CompressionTypeExtension: "lz4"},
}
