// Command nightly-load is an example loader built on the process tracker.
//
// It starts a run of the "nightly_orders_load" process, registers the files
// found in a landing directory (or S3 prefix) as ready extracts, moves them
// through loading to loaded and completes the run. A failure is recorded as a
// "File Error" and fails the run.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	config "github.com/tigerroll/processtracker/pkg/tracker/core/config"
	"github.com/tigerroll/processtracker/pkg/tracker/core/config/bootstrap"
	model "github.com/tigerroll/processtracker/pkg/tracker/core/domain/model"
	"github.com/tigerroll/processtracker/pkg/tracker/core/process"
	sqlstore "github.com/tigerroll/processtracker/pkg/tracker/infrastructure/repository/sql"
	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

const processName = "nightly_orders_load"

func main() {
	var (
		opts       config.LoadOptions
		landing    string
		setup      bool
		downstream string
	)
	cmd := &cobra.Command{
		Use:   "nightly-load",
		Short: "Load the extracts waiting in a landing location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Run(cmd.Context(), opts, func(ctx context.Context, c bootstrap.Components) error {
				if setup {
					if err := sqlstore.Setup(ctx, c.Conn); err != nil {
						return err
					}
				}
				return load(ctx, c.Processes, landing, downstream)
			})
		},
	}
	cmd.Flags().StringVar(&opts.EnvFilePath, "env-file", "", "path of the .env file")
	cmd.Flags().StringVar(&landing, "landing", "./landing", "directory or s3:// URL holding the extracts")
	cmd.Flags().BoolVar(&setup, "setup", false, "create the tracker tables first")
	cmd.Flags().StringVar(&downstream, "downstream", "", "register this existing process as a child of the load")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func load(ctx context.Context, engine *process.Engine, landing, downstream string) error {
	run, err := engine.Start(ctx, process.Options{
		ProcessName:  processName,
		ProcessType:  "load",
		Actor:        "scheduler",
		Tool:         "nightly-load",
		Sources:      []model.SourceRef{model.SourceObjectNamed("erp", "orders")},
		Targets:      model.SourceNames("warehouse"),
		DatasetTypes: []string{"sales"},
	})
	if err != nil {
		return err
	}
	if downstream != "" {
		if err := run.AddDependency(ctx, string(model.DependencyChild), downstream); err != nil {
			logger.Warnf("Could not register downstream process '%s': %v", downstream, err)
		}
	}

	if err := loadExtracts(ctx, run, landing); err != nil {
		end := time.Now()
		if raiseErr := run.RaiseRunError(ctx, model.ErrorTypeFileError, err.Error(), true, &end); raiseErr != nil {
			return raiseErr
		}
		return err
	}
	return run.ChangeRunStatus(ctx, model.ProcessStatusCompleted, nil)
}

func loadExtracts(ctx context.Context, run *process.Run, landing string) error {
	if _, err := run.RegisterExtractsByLocation(ctx, landing, ""); err != nil {
		return err
	}
	extracts, err := run.FindExtractsByLocation(ctx, process.LocationQuery{Path: landing}, model.ExtractStatusReady)
	if err != nil {
		return err
	}
	if len(extracts) == 0 {
		logger.Infof("Nothing to load in '%s'.", landing)
		return nil
	}
	if err := run.BulkChangeExtractStatus(ctx, extracts, model.ExtractStatusLoading); err != nil {
		return err
	}

	var total int64
	var low, high *time.Time
	for _, x := range extracts {
		ok, err := x.FileExists(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("extract '%s' disappeared from '%s'", x.Filename(), landing)
		}
		// A real loader copies the file here; the example only stamps the audit fields.
		loadedAt := time.Now()
		if err := x.SetLowHighDates(ctx, &x.Row.ExtractRegistrationDateTime, &loadedAt, string(model.AuditLoad)); err != nil {
			return err
		}
		if err := x.SetRecordCount(ctx, 1, string(model.AuditLoad)); err != nil {
			return err
		}
		total++
		low, high = earliest(low, x.Row.ExtractLoadLowDateTime), latest(high, x.Row.ExtractLoadHighDateTime)
	}
	if err := run.BulkChangeExtractStatus(ctx, extracts, model.ExtractStatusLoaded); err != nil {
		return err
	}
	if err := run.SetRunLowHighDates(ctx, low, high); err != nil {
		return err
	}
	return run.SetRunRecordCount(ctx, total)
}

func earliest(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.Before(*a)) {
		return b
	}
	return a
}

func latest(a, b *time.Time) *time.Time {
	if a == nil || (b != nil && b.After(*a)) {
		return b
	}
	return a
}
