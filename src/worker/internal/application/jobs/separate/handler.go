package separate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	jobentity "github.com/tonefield/stem-splitter-be/src/shared/job/entity"
	cloudstorage "github.com/tonefield/stem-splitter-be/src/shared/cloud_storage/entity"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/jobs/job_message"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/application/pipeline"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/cerr"
	"github.com/tonefield/stem-splitter-be/src/shared/lib/storagepath"
	"github.com/tonefield/stem-splitter-be/src/worker/internal/lib/working_dir"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

const JobType string = "separate_job"
const ErrorMessage string = "Failed to split the track into stems"

type JobParams struct {
	job_message.JobIdentifier
}

// Results is what the separation produced, for the next job to record.
type Results struct {
	StemNames  []string
	ArchiveKey string
}

//counterfeiter:generate . SeparateJobHandler
type SeparateJobHandler interface {
	HandleSeparateJob(message []byte) (JobParams, Results, error)
}

func NewJobHandler(
	cascade pipeline.Cascade,
	jobStore jobentity.Store,
	fileStore cloudstorage.FileStore,
	pathGenerator storagepath.Generator,
	workingDirStr string,
) (JobHandler, error) {
	workingDir, err := working_dir.NewWorkingDir(workingDirStr)
	if err != nil {
		return JobHandler{}, cerr.Field("working_dir_str", workingDirStr).
			Wrap(err).Error("Failed to create working dir")
	}

	return JobHandler{
		cascade:       cascade,
		jobStore:      jobStore,
		fileStore:     fileStore,
		pathGenerator: pathGenerator,
		workingDir:    workingDir,
	}, nil
}

type JobHandler struct {
	cascade       pipeline.Cascade
	jobStore      jobentity.Store
	fileStore     cloudstorage.FileStore
	pathGenerator storagepath.Generator
	workingDir    working_dir.WorkingDir
}

func (s JobHandler) HandleSeparateJob(message []byte) (JobParams, Results, error) {
	params, err := unmarshalMessage(message)
	if err != nil {
		return JobParams{}, Results{}, cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	ctx := context.Background()
	errctx := cerr.Field("job_id", params.JobID)

	job, err := s.jobStore.GetJob(ctx, params.JobID)
	if err != nil {
		return JobParams{}, Results{}, errctx.Wrap(err).Error("Failed to fetch the job")
	}

	tempDir, err := os.MkdirTemp(s.workingDir.TempDir(), "separate-*")
	if err != nil {
		return JobParams{}, Results{}, errctx.Wrap(err).Error("Failed to create a temp dir for the job")
	}
	defer os.RemoveAll(tempDir)

	inputPath, err := s.fetchOriginal(ctx, job, tempDir)
	if err != nil {
		return JobParams{}, Results{}, errctx.Wrap(err).Error("Failed to fetch the original track")
	}

	baseName := strings.TrimSuffix(job.FileName, filepath.Ext(job.FileName))

	stems, err := s.cascade.Run(ctx, inputPath, baseName, filepath.Join(tempDir, "output"), s.stageObserver(params.JobID))
	if err != nil {
		return JobParams{}, Results{}, errctx.Wrap(err).Error("The separation cascade failed")
	}

	stemNames, err := s.uploadStems(ctx, job, stems)
	if err != nil {
		return JobParams{}, Results{}, errctx.Wrap(err).Error("Failed to upload the stems")
	}

	archiveKey, err := s.uploadArchive(ctx, job, baseName, stems)
	if err != nil {
		return JobParams{}, Results{}, errctx.Wrap(err).Error("Failed to upload the stem archive")
	}

	return params, Results{
		StemNames:  stemNames,
		ArchiveKey: archiveKey,
	}, nil
}

func (s JobHandler) fetchOriginal(ctx context.Context, job jobentity.Job, tempDir string) (string, error) {
	contents, err := s.fileStore.GetFile(ctx, job.OriginalKey)
	if err != nil {
		return "", cerr.Field("original_key", job.OriginalKey).
			Wrap(err).Error("Failed to read the original track from the file store")
	}

	inputPath := filepath.Join(tempDir, job.FileName)
	if err := os.WriteFile(inputPath, contents, 0644); err != nil {
		return "", cerr.Field("input_path", inputPath).
			Wrap(err).Error("Failed to write the original track to disk")
	}

	return inputPath, nil
}

// stageObserver reports cascade progress onto the job row. Reporting
// is best effort, a failed update never aborts the separation.
func (s JobHandler) stageObserver(jobID string) pipeline.StageObserver {
	return func(stage pipeline.Stage) {
		updater := func(job jobentity.Job) (jobentity.Job, error) {
			job.CurrentStage = string(stage)
			job.Progress = stage.Progress()
			return job, nil
		}

		if err := s.jobStore.UpdateJob(context.Background(), jobID, updater); err != nil {
			log.WithFields(log.Fields{
				"job_id": jobID,
				"stage":  stage,
			}).Warn("Failed to report job progress")
		}
	}
}

func (s JobHandler) uploadStems(ctx context.Context, job jobentity.Job, stems pipeline.StemFilePaths) ([]string, error) {
	stemNames := []string{}

	for _, label := range pipeline.StemLabels {
		stemPath := stems[label]
		stemName := filepath.Base(stemPath)

		contents, err := os.ReadFile(stemPath)
		if err != nil {
			return nil, cerr.Field("stem_path", stemPath).
				Wrap(err).Error("Failed to read a finished stem")
		}

		stemURL := s.pathGenerator.GeneratePath(job.ID, "stems/"+stemName)
		if err := s.fileStore.WriteFile(ctx, stemURL, contents); err != nil {
			return nil, cerr.Field("stem_url", stemURL).
				Wrap(err).Error("Failed to write a stem to the file store")
		}

		stemNames = append(stemNames, stemName)
	}

	return stemNames, nil
}

func (s JobHandler) uploadArchive(ctx context.Context, job jobentity.Job, baseName string, stems pipeline.StemFilePaths) (string, error) {
	archive, err := buildArchive(stems)
	if err != nil {
		return "", cerr.Wrap(err).Error("Failed to build the stem archive")
	}

	archiveURL := s.pathGenerator.GeneratePath(job.ID, "stems/"+baseName+" Stems.zip")
	if err := s.fileStore.WriteFile(ctx, archiveURL, archive); err != nil {
		return "", cerr.Field("archive_url", archiveURL).
			Wrap(err).Error("Failed to write the archive to the file store")
	}

	return archiveURL, nil
}

func unmarshalMessage(message []byte) (JobParams, error) {
	params := JobParams{}
	err := json.Unmarshal(message, &params)
	if err != nil {
		return JobParams{}, cerr.Wrap(err).Error("Failed to unmarshal message JSON")
	}

	if params.JobID == "" {
		return JobParams{}, cerr.Field("job_params", params).Error("Missing job ID")
	}

	return params, nil
}
