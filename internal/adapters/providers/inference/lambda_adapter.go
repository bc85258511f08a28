package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
	"github.com/rs/zerolog"
)

// LambdaAPI is the subset of the Lambda client used for inference
type LambdaAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

var credentialErrorCodes = map[string]bool{
	"UnrecognizedClientException": true,
	"InvalidSignatureException":   true,
	"ExpiredTokenException":       true,
	"AccessDeniedException":       true,
}

// LambdaAdapter invokes the rent prediction function synchronously
type LambdaAdapter struct {
	client       LambdaAPI
	functionName string
	timeout      time.Duration
	logger       zerolog.Logger
}

// NewLambdaAdapter creates a new Lambda inference adapter
func NewLambdaAdapter(client LambdaAPI, functionName string, timeout time.Duration, logger zerolog.Logger) providers.InferenceProvider {
	return &LambdaAdapter{
		client:       client,
		functionName: functionName,
		timeout:      timeout,
		logger:       logger.With().Str("component", "lambda_inference").Logger(),
	}
}

// Invoke sends payload to the function and returns the raw response document
func (a *LambdaAdapter) Invoke(ctx context.Context, payload providers.InferencePayload) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.NewInvalidPayloadError(err)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	a.logger.Debug().RawJSON("payload", body).Msg("invoking prediction function")

	out, err := a.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(a.functionName),
		Payload:      body,
	})
	if err != nil {
		return nil, a.classify(err)
	}

	if out.FunctionError != nil {
		a.logger.Warn().
			Str("function_error", aws.ToString(out.FunctionError)).
			Msg("prediction function reported an error")
	}
	a.logger.Debug().Int32("status_code", out.StatusCode).Int("bytes", len(out.Payload)).Msg("prediction function responded")

	return out.Payload, nil
}

func (a *LambdaAdapter) classify(err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return apperrors.NewFunctionNotFoundError(a.functionName, err)
	}

	var invalidContent *types.InvalidRequestContentException
	if errors.As(err, &invalidContent) {
		return apperrors.NewInvalidPayloadError(err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && credentialErrorCodes[apiErr.ErrorCode()] {
		return apperrors.NewBadCredentialsError(err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "credentials") {
		return apperrors.NewBadCredentialsError(err)
	}

	return apperrors.NewExternalError(fmt.Sprintf("failed to invoke %s", a.functionName), err)
}
