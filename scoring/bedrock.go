package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"nutriagent"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// A score is a handful of tokens; keep the cap small.
	defaultMaxTokens = 64

	// Low temperature keeps scores stable across identical requests.
	defaultTemperature = 0.1
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

type BedrockOptions struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
}

// BedrockScorer asks a Bedrock model to rate how much a user would enjoy a
// food item. When the model call or parse fails it falls back to the static
// scorer rather than failing the plan.
type BedrockScorer struct {
	brc      bedrockRuntimeClient
	opts     BedrockOptions
	fallback *StaticScorer
}

func NewBedrockScorer(brc bedrockRuntimeClient, opts BedrockOptions) *BedrockScorer {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	return &BedrockScorer{
		brc:      brc,
		opts:     opts,
		fallback: NewStaticScorer(),
	}
}

func (s *BedrockScorer) Score(ctx context.Context, profile nutriagent.UserProfile, item nutriagent.FoodItem) (float64, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal profile: %w", err)
	}
	itemJSON, err := json.Marshal(item)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal item: %w", err)
	}

	prompt := fmt.Sprintf(
		"Rate from 1 to 5 how much this user would enjoy this food, considering their cuisine preferences, dislikes and avoided foods. Respond with a single number only.\n\nUser:\n%s\n\nFood:\n%s",
		profileJSON, itemJSON,
	)

	in := &bedrockruntime.ConverseInput{
		ModelId: &s.opts.ModelID,
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(s.opts.MaxTokens),
			Temperature: aws.Float32(s.opts.Temperature),
		},
	}

	out, err := s.brc.Converse(ctx, in)
	if err != nil {
		slog.Warn("SCORER: Bedrock invoke failed, using static fallback", "error", err, "food_id", item.ID)
		return s.fallback.Score(ctx, profile, item)
	}

	text := textFromOutput(out)
	score, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || score < 1 || score > 5 {
		slog.Warn("SCORER: Unparseable model score, using static fallback", "text", text, "food_id", item.ID)
		return s.fallback.Score(ctx, profile, item)
	}

	slog.Info("SCORER: Model score", "food_id", item.ID, "score", score)
	return score, nil
}

func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return ""
	}
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t.Value != "" {
			return t.Value
		}
	}
	return ""
}
