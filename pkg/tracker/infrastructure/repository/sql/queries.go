package sql

import (
	"context"
	"strings"

	"gorm.io/gorm"

	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	repository "github.com/tigerroll/processtracker/pkg/tracker/core/domain/repository"
)

// LatestRun implements repository.RunStore.
func (s *SQLMetadataStore) LatestRun(ctx context.Context, processID int64) (*model.ProcessTracking, error) {
	const op = "SQLMetadataStore.LatestRun"
	db, err := s.session(ctx)
	if err != nil {
		return nil, storeError(op, "failed to open session", err)
	}

	var runs []*model.ProcessTracking
	err = db.Model(&model.ProcessTracking{}).
		Where("process_id = ?", processID).
		Order("process_run_id DESC").
		Limit(1).
		Find(&runs).Error
	if err != nil {
		return nil, storeError(op, "failed to query latest run", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// CountBlockingParentProcesses implements repository.RunStore.
func (s *SQLMetadataStore) CountBlockingParentProcesses(ctx context.Context, processID int64, statusIDs []int64) (int64, error) {
	const op = "SQLMetadataStore.CountBlockingParentProcesses"
	db, err := s.session(ctx)
	if err != nil {
		return 0, storeError(op, "failed to open session", err)
	}

	parents := db.Model(&model.ProcessDependency{}).
		Select("parent_process_id").
		Where("child_process_id = ?", processID)

	var count int64
	err = db.Model(&model.ProcessTracking{}).
		Where("process_id IN (?)", parents).
		Where("process_status_id IN ?", statusIDs).
		Distinct("process_id").
		Count(&count).Error
	if err != nil {
		return 0, storeError(op, "failed to count blocking parent processes", err)
	}
	return count, nil
}

// ClearLatestRun implements repository.RunStore.
func (s *SQLMetadataStore) ClearLatestRun(ctx context.Context, processID int64) error {
	const op = "SQLMetadataStore.ClearLatestRun"
	db, err := s.session(ctx)
	if err != nil {
		return storeError(op, "failed to open session", err)
	}

	err = db.Model(&model.ProcessTracking{}).
		Where("process_id = ? AND is_latest_run = ?", processID, true).
		Update("is_latest_run", false).Error
	if err != nil {
		return storeError(op, "failed to clear latest run flag", err)
	}
	return nil
}

// FindExtracts implements repository.ExtractStore.
func (s *SQLMetadataStore) FindExtracts(ctx context.Context, filter repository.ExtractFilter) ([]*model.Extract, error) {
	const op = "SQLMetadataStore.FindExtracts"
	db, err := s.session(ctx)
	if err != nil {
		return nil, storeError(op, "failed to open session", err)
	}

	q := db.Model(&model.Extract{})
	if filter.FilenameContains != "" {
		q = q.Where("extract_filename LIKE ? ESCAPE '!'", "%"+escapeLike(filter.FilenameContains)+"%")
	}
	if filter.LocationName != "" || filter.LocationPath != "" {
		locations := db.Model(&model.Location{}).Select("location_id")
		if filter.LocationName != "" {
			locations = locations.Where("location_name = ?", filter.LocationName)
		}
		if filter.LocationPath != "" {
			locations = locations.Where("location_path = ?", filter.LocationPath)
		}
		q = q.Where("location_id IN (?)", locations)
	}
	if filter.ProcessName != "" {
		q = q.Where("extract_id IN (?)", extractsOfProcess(db, filter.ProcessName))
	}
	if filter.StatusID != 0 {
		q = q.Where("extract_status_id = ?", filter.StatusID)
	}

	var extracts []*model.Extract
	if err := q.Order("extract_registration_date_time ASC, extract_id ASC").Find(&extracts).Error; err != nil {
		return nil, storeError(op, "failed to query extracts", err)
	}
	return extracts, nil
}

// extractsOfProcess selects the ids of extracts touched by any run of the named process.
func extractsOfProcess(db *gorm.DB, processName string) *gorm.DB {
	processes := db.Model(&model.Process{}).
		Select("process_id").
		Where("process_name = ?", processName)
	runs := db.Model(&model.ProcessTracking{}).
		Select("process_tracking_id").
		Where("process_id IN (?)", processes)
	return db.Model(&model.ExtractProcess{}).
		Select("extract_id").
		Where("process_tracking_id IN (?)", runs)
}

// FindParentExtracts implements repository.ExtractStore.
func (s *SQLMetadataStore) FindParentExtracts(ctx context.Context, extractID int64, statusIDs []int64) ([]*model.Extract, error) {
	const op = "SQLMetadataStore.FindParentExtracts"
	db, err := s.session(ctx)
	if err != nil {
		return nil, storeError(op, "failed to open session", err)
	}

	parents := db.Model(&model.ExtractDependency{}).
		Select("parent_extract_id").
		Where("child_extract_id = ?", extractID)

	var extracts []*model.Extract
	err = db.Model(&model.Extract{}).
		Where("extract_id IN (?)", parents).
		Where("extract_status_id IN ?", statusIDs).
		Order("extract_id ASC").
		Find(&extracts).Error
	if err != nil {
		return nil, storeError(op, "failed to query parent extracts", err)
	}
	return extracts, nil
}

// CountLocationsWithNamePrefix implements repository.ExtractStore.
func (s *SQLMetadataStore) CountLocationsWithNamePrefix(ctx context.Context, prefix string) (int64, error) {
	const op = "SQLMetadataStore.CountLocationsWithNamePrefix"
	db, err := s.session(ctx)
	if err != nil {
		return 0, storeError(op, "failed to open session", err)
	}

	var count int64
	err = db.Model(&model.Location{}).
		Where("location_name LIKE ? ESCAPE '!'", escapeLike(prefix)+"%").
		Count(&count).Error
	if err != nil {
		return 0, storeError(op, "failed to count locations", err)
	}
	return count, nil
}

// IncrementLocationFileCount implements repository.ExtractStore.
func (s *SQLMetadataStore) IncrementLocationFileCount(ctx context.Context, locationID int64) error {
	const op = "SQLMetadataStore.IncrementLocationFileCount"
	db, err := s.session(ctx)
	if err != nil {
		return storeError(op, "failed to open session", err)
	}

	err = db.Model(&model.Location{}).
		Where("location_id = ?", locationID).
		UpdateColumn("location_file_count", gorm.Expr("location_file_count + ?", 1)).Error
	if err != nil {
		return storeError(op, "failed to increment location file count", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
