package model

// Lookup is implemented by the enumerated tables addressed by name.
type Lookup interface {
	// LookupName returns the row's name.
	LookupName() string
	// SetLookupName sets the row's name.
	SetLookupName(name string)
	// LookupID returns the row's surrogate id, zero before insert.
	LookupID() int64
}

// Actor is a human or automated principal that runs a process.
type Actor struct {
	ActorID   int64  `gorm:"primaryKey;autoIncrement"`
	ActorName string `gorm:"size:250;not null;uniqueIndex"`
}

func (a *Actor) LookupName() string        { return a.ActorName }
func (a *Actor) SetLookupName(name string) { a.ActorName = name }
func (a *Actor) LookupID() int64           { return a.ActorID }

// Tool is the framework or program that executed a run.
type Tool struct {
	ToolID   int64  `gorm:"primaryKey;autoIncrement"`
	ToolName string `gorm:"size:250;not null;uniqueIndex"`
}

func (t *Tool) LookupName() string        { return t.ToolName }
func (t *Tool) SetLookupName(name string) { t.ToolName = name }
func (t *Tool) LookupID() int64           { return t.ToolID }

// Source is a logical data source, also used for process targets.
type Source struct {
	SourceID   int64  `gorm:"primaryKey;autoIncrement"`
	SourceName string `gorm:"size:250;not null;uniqueIndex"`
}

func (s *Source) LookupName() string        { return s.SourceName }
func (s *Source) SetLookupName(name string) { s.SourceName = name }
func (s *Source) LookupID() int64           { return s.SourceID }

// SourceObject is a named object (table, topic, file family) within a Source.
type SourceObject struct {
	SourceObjectID   int64  `gorm:"primaryKey;autoIncrement"`
	SourceID         int64  `gorm:"not null;uniqueIndex:idx_source_object_name"`
	SourceObjectName string `gorm:"size:250;not null;uniqueIndex:idx_source_object_name"`
}

// ProcessType categorizes processes, e.g. extract or load.
type ProcessType struct {
	ProcessTypeID   int64  `gorm:"primaryKey;autoIncrement"`
	ProcessTypeName string `gorm:"size:250;not null;uniqueIndex"`
}

func (p *ProcessType) LookupName() string        { return p.ProcessTypeName }
func (p *ProcessType) SetLookupName(name string) { p.ProcessTypeName = name }
func (p *ProcessType) LookupID() int64           { return p.ProcessTypeID }

// ProcessStatus enumerates run states.
type ProcessStatus struct {
	ProcessStatusID   int64  `gorm:"primaryKey;autoIncrement"`
	ProcessStatusName string `gorm:"size:75;not null;uniqueIndex"`
}

func (p *ProcessStatus) LookupName() string        { return p.ProcessStatusName }
func (p *ProcessStatus) SetLookupName(name string) { p.ProcessStatusName = name }
func (p *ProcessStatus) LookupID() int64           { return p.ProcessStatusID }

// ExtractStatus enumerates extract states.
type ExtractStatus struct {
	ExtractStatusID   int64  `gorm:"primaryKey;autoIncrement"`
	ExtractStatusName string `gorm:"size:75;not null;uniqueIndex"`
}

func (e *ExtractStatus) LookupName() string        { return e.ExtractStatusName }
func (e *ExtractStatus) SetLookupName(name string) { e.ExtractStatusName = name }
func (e *ExtractStatus) LookupID() int64           { return e.ExtractStatusID }

// ErrorType is the user-extensible error taxonomy.
type ErrorType struct {
	ErrorTypeID   int64  `gorm:"primaryKey;autoIncrement"`
	ErrorTypeName string `gorm:"size:250;not null;uniqueIndex"`
}

func (e *ErrorType) LookupName() string        { return e.ErrorTypeName }
func (e *ErrorType) SetLookupName(name string) { e.ErrorTypeName = name }
func (e *ErrorType) LookupID() int64           { return e.ErrorTypeID }

// DatasetType is a free-form tag for processes, sources and extracts.
type DatasetType struct {
	DatasetTypeID   int64  `gorm:"primaryKey;autoIncrement"`
	DatasetTypeName string `gorm:"size:250;not null;uniqueIndex"`
}

func (d *DatasetType) LookupName() string        { return d.DatasetTypeName }
func (d *DatasetType) SetLookupName(name string) { d.DatasetTypeName = name }
func (d *DatasetType) LookupID() int64           { return d.DatasetTypeID }

// LocationType is either "local filesystem" or "s3".
type LocationType struct {
	LocationTypeID   int64  `gorm:"primaryKey;autoIncrement"`
	LocationTypeName string `gorm:"size:25;not null;uniqueIndex"`
}

func (l *LocationType) LookupName() string        { return l.LocationTypeName }
func (l *LocationType) SetLookupName(name string) { l.LocationTypeName = name }
func (l *LocationType) LookupID() int64           { return l.LocationTypeID }

// FileType describes how extracts of a given extension are formatted.
type FileType struct {
	FileTypeID   int64  `gorm:"primaryKey;autoIncrement"`
	FileTypeName string `gorm:"size:75;not null;uniqueIndex"`
	Delimiter    string `gorm:"size:5"`
	QuoteChar    string `gorm:"size:5"`
	EscapeChar   string `gorm:"size:5"`
}

func (f *FileType) LookupName() string        { return f.FileTypeName }
func (f *FileType) SetLookupName(name string) { f.FileTypeName = name }
func (f *FileType) LookupID() int64           { return f.FileTypeID }

// CompressionType names a compression codec and its file extension.
type CompressionType struct {
	CompressionTypeID        int64  `gorm:"primaryKey;autoIncrement"`
	CompressionTypeName      string `gorm:"size:75;not null;uniqueIndex"`
	CompressionTypeExtension string `gorm:"size:25"`
}

func (c *CompressionType) LookupName() string        { return c.CompressionTypeName }
func (c *CompressionType) SetLookupName(name string) { c.CompressionTypeName = name }
func (c *CompressionType) LookupID() int64           { return c.CompressionTypeID }
