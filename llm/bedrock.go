package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go/auth/bearer"
)

// BedrockConfig holds the settings for a Bedrock Converse backend
type BedrockConfig struct {
	Region          string
	ModelID         string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// BearerToken switches authentication from SigV4 to a Bedrock API key
	BearerToken string
	Timeout     time.Duration
	// Endpoint overrides https://bedrock-runtime.<region>.amazonaws.com
	Endpoint string
	// HTTPClient replaces the client built from Timeout
	HTTPClient bedrockruntime.HTTPClient
}

// BedrockBackend calls the Bedrock runtime Converse API
type BedrockBackend struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockBackend creates a Bedrock backend. Without a bearer token, AWS
// credentials come from the static keys when set, otherwise the default chain.
func NewBedrockBackend(ctx context.Context, cfg BedrockConfig) (*BedrockBackend, error) {
	if cfg.ModelID == "" {
		return nil, fmt.Errorf("bedrock model id is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	var httpClient bedrockruntime.HTTPClient = awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)
	if cfg.HTTPClient != nil {
		httpClient = cfg.HTTPClient
	}

	withEndpoint := func(o *bedrockruntime.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(strings.TrimRight(cfg.Endpoint, "/"))
		}
	}

	// An API key needs no AWS credentials; with none set the client picks bearer auth
	if cfg.BearerToken != "" {
		client := bedrockruntime.New(bedrockruntime.Options{
			Region:                  cfg.Region,
			HTTPClient:              httpClient,
			BearerAuthTokenProvider: bearer.StaticTokenProvider{Token: bearer.Token{Value: cfg.BearerToken}},
		}, withEndpoint)
		return &BedrockBackend{client: client, modelID: cfg.ModelID}, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithHTTPClient(httpClient),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockBackend{
		client:  bedrockruntime.NewFromConfig(awsCfg, withEndpoint),
		modelID: cfg.ModelID,
	}, nil
}

// ModelName returns the configured model id
func (b *BedrockBackend) ModelName() string {
	return b.modelID
}

// Invoke sends a single-turn Converse request
func (b *BedrockBackend) Invoke(ctx context.Context, req Request) (*Response, error) {
	modelID := b.modelID
	if req.Model != "" {
		modelID = req.Model
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(modelID),
		Messages: []types.Message{{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: req.Prompt}},
		}},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}
	if req.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}

	out, err := b.client.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("bedrock converse failed: %w", err)
	}

	var text strings.Builder
	if msg, ok := out.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if t, ok := block.(*types.ContentBlockMemberText); ok {
				text.WriteString(t.Value)
			}
		}
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("%w (stop reason: %s)", ErrEmptyResponse, out.StopReason)
	}

	resp := &Response{Text: text.String()}
	if out.Usage != nil {
		resp.Usage = &Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	return resp, nil
}
