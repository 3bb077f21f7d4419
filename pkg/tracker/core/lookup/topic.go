package lookup

import (
	"strings"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/exception"
)

// Topic names a lookup table.
type Topic string

// Recognized topics.
const (
	TopicActor           Topic = "actor"
	TopicTool            Topic = "tool"
	TopicSource          Topic = "source"
	TopicProcessType     Topic = "process type"
	TopicProcessStatus   Topic = "process status"
	TopicExtractStatus   Topic = "extract status"
	TopicErrorType       Topic = "error type"
	TopicDatasetType     Topic = "dataset type"
	TopicFileType        Topic = "filetype"
	TopicCompressionType Topic = "compression type"
	TopicLocationType    Topic = "location type"
)

// Topics lists every recognized topic.
var Topics = []Topic{
	TopicActor, TopicTool, TopicSource, TopicProcessType, TopicProcessStatus, TopicExtractStatus,
	TopicErrorType, TopicDatasetType, TopicFileType, TopicCompressionType, TopicLocationType,
}

// ParseTopic returns the topic named s. Case, surrounding space and the
// separator ("process type", "process_type", "process-type") are ignored.
func ParseTopic(s string) (Topic, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", " ", "-", " ").Replace(normalized)
	if normalized == "file type" {
		return TopicFileType, nil
	}
	for _, t := range Topics {
		if string(t) == normalized {
			return t, nil
		}
	}
	return "", exception.Newf(exception.ErrInvalidTopic, "lookup.ParseTopic", "unrecognized topic %q", s)
}

// newRow returns an empty row of the topic's table.
func (t Topic) newRow() model.Lookup {
	switch t {
	case TopicActor:
		return &model.Actor{}
	case TopicTool:
		return &model.Tool{}
	case TopicSource:
		return &model.Source{}
	case TopicProcessType:
		return &model.ProcessType{}
	case TopicProcessStatus:
		return &model.ProcessStatus{}
	case TopicExtractStatus:
		return &model.ExtractStatus{}
	case TopicErrorType:
		return &model.ErrorType{}
	case TopicDatasetType:
		return &model.DatasetType{}
	case TopicFileType:
		return &model.FileType{}
	case TopicCompressionType:
		return &model.CompressionType{}
	case TopicLocationType:
		return &model.LocationType{}
	}
	return nil
}

// nameColumn is the column holding the row name, used for ordering.
func (t Topic) nameColumn() string {
	switch t {
	case TopicFileType:
		return "file_type_name"
	default:
		return strings.ReplaceAll(string(t), " ", "_") + "_name"
	}
}

// reference is a column of another table holding ids of a topic's rows.
type reference struct {
	table  interface{}
	column string
	what   string
}

// references lists the columns that point at rows of t.
func (t Topic) references() []reference {
	switch t {
	case TopicActor:
		return []reference{{&model.ProcessTracking{}, "process_run_actor_id", "runs"}}
	case TopicTool:
		return []reference{{&model.Process{}, "tool_id", "processes"}}
	case TopicSource:
		return []reference{
			{&model.SourceObject{}, "source_id", "source objects"},
			{&model.ProcessSource{}, "source_id", "process sources"},
			{&model.ProcessTarget{}, "target_source_id", "process targets"},
			{&model.ExtractSource{}, "source_id", "extract sources"},
		}
	case TopicProcessType:
		return []reference{{&model.Process{}, "process_type_id", "processes"}}
	case TopicProcessStatus:
		return []reference{{&model.ProcessTracking{}, "process_status_id", "runs"}}
	case TopicExtractStatus:
		return []reference{
			{&model.Extract{}, "extract_status_id", "extracts"},
			{&model.ExtractProcess{}, "extract_process_status_id", "run extract views"},
		}
	case TopicErrorType:
		return []reference{{&model.ErrorTracking{}, "error_type_id", "run errors"}}
	case TopicDatasetType:
		return []reference{
			{&model.ProcessDatasetType{}, "dataset_type_id", "processes"},
			{&model.ExtractDatasetType{}, "dataset_type_id", "extracts"},
		}
	case TopicFileType:
		return []reference{{&model.Extract{}, "file_type_id", "extracts"}}
	case TopicCompressionType:
		return []reference{{&model.Extract{}, "compression_type_id", "extracts"}}
	case TopicLocationType:
		return []reference{{&model.Location{}, "location_type_id", "locations"}}
	}
	return nil
}

// protectedNames returns the names that cannot be deleted or renamed.
func (t Topic) protectedNames() []string {
	switch t {
	case TopicProcessStatus:
		return model.ProtectedProcessStatuses
	case TopicExtractStatus:
		return model.ProtectedExtractStatuses
	case TopicErrorType:
		return model.ProtectedErrorTypes
	case TopicLocationType:
		return []string{model.LocationTypeLocal, model.LocationTypeS3}
	}
	return nil
}

// IsProtected reports whether name is a protected row of topic t.
func (t Topic) IsProtected(name string) bool {
	for _, p := range t.protectedNames() {
		if p == name {
			return true
		}
	}
	return false
}
