package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/spatial-cli/internal/analysis"
	"github.com/sells-group/spatial-cli/internal/config"
	"github.com/sells-group/spatial-cli/internal/export"
)

var (
	batchJobsPath string
	batchLimit    int
)

// batchJob is one entry of a jobs file. Input and Analysis start from the
// loaded config; the file only lists what differs.
type batchJob struct {
	Name     string             `yaml:"name"`
	Input    config.InputConfig `yaml:"input"`
	Analysis analysis.Config    `yaml:"analysis"`
	Report   string             `yaml:"report"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the analyses listed in a jobs file concurrently",
	Example: `  spatial-cli batch --jobs jobs.yaml

jobs.yaml:
  jobs:
    - name: income-moran
      input: {path: tracts.shp, value_field: income}
      report: income.json
    - name: income-hotspots
      input: {path: tracts.shp, value_field: income}
      analysis: {statistic: gstar, scope: local}
      report: hotspots.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchJobsPath == "" {
			return eris.New("batch: --jobs is required")
		}
		jobs, err := readJobs(batchJobsPath, cfg)
		if err != nil {
			return err
		}
		limit := cfg.Batch.MaxConcurrent
		if batchLimit > 0 {
			limit = batchLimit
		}
		return processBatch(cmd.Context(), jobs, limit)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchJobsPath, "jobs", "", "YAML file listing the analyses to run")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max concurrent analyses (default batch.max_concurrent)")
	rootCmd.AddCommand(batchCmd)
}

// readJobs decodes path, layering each job over the input and analysis
// sections of base.
func readJobs(path string, base *config.Config) ([]batchJob, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}
	var doc struct {
		Jobs []yaml.Node `yaml:"jobs"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, eris.Wrapf(err, "batch: parse %s", path)
	}
	if len(doc.Jobs) == 0 {
		return nil, eris.Errorf("batch: %s lists no jobs", path)
	}

	jobs := make([]batchJob, len(doc.Jobs))
	seen := make(map[string]bool, len(doc.Jobs))
	for i := range doc.Jobs {
		j := batchJob{Input: base.Input, Analysis: base.Analysis}
		if err := doc.Jobs[i].Decode(&j); err != nil {
			return nil, eris.Wrapf(err, "batch: job %d", i)
		}
		if j.Name == "" {
			j.Name = filepath.Base(j.Input.Path) + ":" + j.Input.ValueField
		}
		if seen[j.Name] {
			return nil, eris.Errorf("batch: duplicate job name %q", j.Name)
		}
		seen[j.Name] = true
		if err := j.Analysis.Validate(); err != nil {
			return nil, eris.Wrapf(err, "batch: job %s", j.Name)
		}
		jobs[i] = j
	}
	return jobs, nil
}

// processBatch loads every input, runs the analyses concurrently and writes
// the reports. Failed jobs are logged and counted without stopping the rest.
func processBatch(ctx context.Context, jobs []batchJob, limit int) error {
	var failed, succeeded int

	runs := make([]analysis.Job, 0, len(jobs))
	byName := make(map[string]batchJob, len(jobs))
	for _, j := range jobs {
		l, done, err := openInput(ctx, j.Input)
		if err != nil {
			failed++
			zap.L().Error("batch: load failed", zap.String("job", j.Name), zap.Error(err))
			continue
		}
		done()
		runs = append(runs, analysis.Job{Name: j.Name, Layer: l, Config: j.Analysis})
		byName[j.Name] = j
	}

	zap.L().Info("processing batch",
		zap.Int("jobs", len(runs)),
		zap.Int("concurrency", limit),
	)

	results, err := analysis.RunBatch(ctx, runs, limit)
	if err != nil {
		return eris.Wrap(err, "batch processing")
	}

	for _, res := range results {
		log := zap.L().With(zap.String("job", res.Name))
		if res.Err != nil {
			failed++
			log.Error("analysis failed", zap.Error(res.Err))
			continue
		}
		if path := byName[res.Name].Report; path != "" {
			if !filepath.IsAbs(path) && cfg.Output.Dir != "" {
				path = filepath.Join(cfg.Output.Dir, path)
			}
			if err := export.WriteReport(path, res.Report, cfg.Output.IncludeWeights); err != nil {
				failed++
				log.Error("report failed", zap.Error(err))
				continue
			}
		}
		succeeded++
		log.Info("analysis complete", zap.String("run_id", res.Report.RunID))
	}

	zap.L().Info("batch complete",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return eris.Errorf("batch: %d of %d jobs failed", failed, len(jobs))
	}
	return nil
}
