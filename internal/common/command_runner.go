package common

import (
	"context"

	"interviewprep/internal/errors"
	"interviewprep/internal/types"
)

// ResumeOperationFunc runs one operation on a loaded resume file
type ResumeOperationFunc[Output any] func(context.Context, *types.UploadedFile) (Output, error)

// RunResumeCommand encapsulates the common logic of resume-based CLI
// commands: load the file, run the operation, format and write the result.
func RunResumeCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	resumePath string,
	operation ResumeOperationFunc[Output],
) error {
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	if err := ValidateOutputFormat(cmdConfig.OutputFormat, outputHandler.GetSupportedFormats()); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, err.Error(), nil)
	}

	upload, err := fileProcessor.ReadUpload(resumePath)
	if err != nil {
		return err
	}

	logger.Info("Running command",
		"resume", upload.Name,
		"media_type", upload.MediaType,
		"format", cmdConfig.OutputFormat)

	result, err := operation(ctx, upload)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
