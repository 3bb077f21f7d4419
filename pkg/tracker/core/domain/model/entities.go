package model

import "time"

// Location is a canonical filesystem or object store location. Path is unique.
type Location struct {
	LocationID         int64   `gorm:"primaryKey;autoIncrement"`
	LocationName       string  `gorm:"size:750;not null;index"`
	LocationPath       string  `gorm:"size:750;not null;uniqueIndex"`
	LocationTypeID     int64   `gorm:"not null"`
	LocationBucketName *string `gorm:"size:750"`
	LocationFileCount  int64   `gorm:"not null;default:0"`
}

// Process is a named data-integration job.
type Process struct {
	ProcessID             int64  `gorm:"primaryKey;autoIncrement"`
	ProcessName           string `gorm:"size:250;not null;uniqueIndex"`
	ProcessTypeID         int64  `gorm:"not null"`
	ToolID                int64  `gorm:"not null"`
	TotalRecordCount      int64  `gorm:"not null;default:0"`
	LastFailedRunDateTime *time.Time
}

// ProcessDependency is a directed edge from a parent process to a child process.
type ProcessDependency struct {
	ParentProcessID int64 `gorm:"primaryKey;autoIncrement:false"`
	ChildProcessID  int64 `gorm:"primaryKey;autoIncrement:false"`
}

// ProcessSource links a process to a source it reads.
type ProcessSource struct {
	ProcessID int64 `gorm:"primaryKey;autoIncrement:false"`
	SourceID  int64 `gorm:"primaryKey;autoIncrement:false"`
}

// ProcessTarget links a process to a source it writes.
type ProcessTarget struct {
	ProcessID      int64 `gorm:"primaryKey;autoIncrement:false"`
	TargetSourceID int64 `gorm:"primaryKey;autoIncrement:false"`
}

// ProcessSourceObject links a process to a source object it reads.
type ProcessSourceObject struct {
	ProcessID      int64 `gorm:"primaryKey;autoIncrement:false"`
	SourceObjectID int64 `gorm:"primaryKey;autoIncrement:false"`
}

// ProcessTargetObject links a process to a source object it writes.
type ProcessTargetObject struct {
	ProcessID      int64 `gorm:"primaryKey;autoIncrement:false"`
	TargetObjectID int64 `gorm:"primaryKey;autoIncrement:false"`
}

// ProcessDatasetType tags a process with a dataset type.
type ProcessDatasetType struct {
	ProcessID     int64 `gorm:"primaryKey;autoIncrement:false"`
	DatasetTypeID int64 `gorm:"primaryKey;autoIncrement:false"`
}

// ProcessTracking is one run of a process. ProcessRunID counts from 1 per process.
type ProcessTracking struct {
	ProcessTrackingID       int64     `gorm:"primaryKey;autoIncrement"`
	ProcessID               int64     `gorm:"not null;uniqueIndex:idx_process_run"`
	ProcessStatusID         int64     `gorm:"not null"`
	ProcessRunID            int64     `gorm:"not null;uniqueIndex:idx_process_run"`
	ProcessRunStartDateTime time.Time `gorm:"not null"`
	ProcessRunEndDateTime   *time.Time
	ProcessRunLowDateTime   *time.Time
	ProcessRunHighDateTime  *time.Time
	ProcessRunRecordCount   int64 `gorm:"not null;default:0"`
	ProcessRunActorID       int64 `gorm:"not null"`
	IsLatestRun             bool  `gorm:"not null;default:false;index"`
}

// ErrorTracking records an error raised during a run.
type ErrorTracking struct {
	ErrorTrackingID         int64     `gorm:"primaryKey;autoIncrement"`
	ErrorTypeID             int64     `gorm:"not null"`
	ErrorDescription        string    `gorm:"size:750"`
	ErrorOccurrenceDateTime time.Time `gorm:"not null"`
	ProcessTrackingID       int64     `gorm:"not null;index"`
}

// Extract is a data file produced or consumed by runs. Filename is unique.
type Extract struct {
	ExtractID                   int64     `gorm:"primaryKey;autoIncrement"`
	ExtractFilename             string    `gorm:"size:750;not null;uniqueIndex"`
	LocationID                  int64     `gorm:"not null;index"`
	ExtractStatusID             int64     `gorm:"not null"`
	ExtractRegistrationDateTime time.Time `gorm:"not null"`
	ExtractWriteLowDateTime     *time.Time
	ExtractWriteHighDateTime    *time.Time
	ExtractWriteRecordCount     *int64
	ExtractLoadLowDateTime      *time.Time
	ExtractLoadHighDateTime     *time.Time
	ExtractLoadRecordCount      *int64
	CompressionTypeID           *int64
	FileTypeID                  *int64
}

// ExtractDependency is a directed edge from a parent extract to a child extract.
type ExtractDependency struct {
	ParentExtractID int64 `gorm:"primaryKey;autoIncrement:false"`
	ChildExtractID  int64 `gorm:"primaryKey;autoIncrement:false"`
}

// ExtractProcess is the status of an extract as seen by one run.
type ExtractProcess struct {
	ExtractID                   int64     `gorm:"primaryKey;autoIncrement:false"`
	ProcessTrackingID           int64     `gorm:"primaryKey;autoIncrement:false"`
	ExtractProcessStatusID      int64     `gorm:"not null"`
	ExtractProcessEventDateTime time.Time `gorm:"not null"`
}

// ExtractSource links an extract to a source.
type ExtractSource struct {
	ExtractID int64 `gorm:"primaryKey;autoIncrement:false"`
	SourceID  int64 `gorm:"primaryKey;autoIncrement:false"`
}

// ExtractSourceObject links an extract to a source object.
type ExtractSourceObject struct {
	ExtractID      int64 `gorm:"primaryKey;autoIncrement:false"`
	SourceObjectID int64 `gorm:"primaryKey;autoIncrement:false"`
}

// ExtractDatasetType tags an extract with a dataset type.
type ExtractDatasetType struct {
	ExtractID     int64 `gorm:"primaryKey;autoIncrement:false"`
	DatasetTypeID int64 `gorm:"primaryKey;autoIncrement:false"`
}

// AllEntities returns one zero value of every persisted entity, parents first.
func AllEntities() []interface{} {
	return []interface{}{
		&Actor{}, &Tool{}, &Source{}, &SourceObject{}, &ProcessType{}, &ProcessStatus{},
		&ExtractStatus{}, &ErrorType{}, &DatasetType{}, &LocationType{}, &FileType{},
		&CompressionType{}, &Location{}, &Process{}, &ProcessDependency{}, &ProcessSource{},
		&ProcessTarget{}, &ProcessSourceObject{}, &ProcessTargetObject{}, &ProcessDatasetType{},
		&ProcessTracking{}, &ErrorTracking{}, &Extract{}, &ExtractDependency{}, &ExtractProcess{},
		&ExtractSource{}, &ExtractSourceObject{}, &ExtractDatasetType{},
	}
}
