package std

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/openai/openai-go"

	"goa.design/bridge/ir"
	"goa.design/bridge/tools"
)

// AnthropicOptions configures std.ai.anthropic. Client and Model are
// required for the tool to be registered; a zero AnthropicOptions leaves
// std.ai.anthropic absent rather than erroring at call time.
type AnthropicOptions struct {
	Client *anthropicsdk.Client
	Model  string
}

// OpenAIOptions configures std.ai.openai.
type OpenAIOptions struct {
	Client *openai.Client
	Model  string
}

// BedrockOptions configures std.ai.bedrock.
type BedrockOptions struct {
	Client *bedrockruntime.Client
	Model  string
}

// newAINamespace wraps each configured provider as an opaque tool function
// projecting a model completion into a response field exactly like any
// other tool, keeping the engine itself provider-agnostic per §1's "tool
// implementations themselves… out of scope". Each tool reads {"prompt":
// "..."} from its input and returns {"text": "..."}.
func newAINamespace(a AnthropicOptions, o OpenAIOptions, b BedrockOptions) tools.Registry {
	reg := tools.Registry{}
	if a.Client != nil && a.Model != "" {
		reg["anthropic"] = anthropicTool(a)
	}
	if o.Client != nil && o.Model != "" {
		reg["openai"] = openaiTool(o)
	}
	if b.Client != nil && b.Model != "" {
		reg["bedrock"] = bedrockTool(b)
	}
	return reg
}

func promptOf(input ir.Value) (string, error) {
	p, _ := input.Get("prompt")
	if p.Kind != ir.KindString || p.Str == "" {
		return "", fmt.Errorf("prompt is required")
	}
	return p.Str, nil
}

func anthropicTool(opts AnthropicOptions) tools.Func {
	return func(ctx context.Context, input ir.Value) (ir.Value, error) {
		prompt, err := promptOf(input)
		if err != nil {
			return ir.Null, fmt.Errorf("std.ai.anthropic: %w", err)
		}
		msg, err := opts.Client.Messages.New(ctx, anthropicsdk.MessageNewParams{
			Model:     anthropicsdk.Model(opts.Model),
			MaxTokens: 1024,
			Messages: []anthropicsdk.MessageParam{
				anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return ir.Null, fmt.Errorf("std.ai.anthropic: %w", err)
		}
		var text string
		for _, block := range msg.Content {
			if block.Type == "text" {
				text += block.Text
			}
		}
		return ir.MapValue([]string{"text"}, map[string]ir.Value{"text": ir.StringValue(text)}), nil
	}
}

func openaiTool(opts OpenAIOptions) tools.Func {
	return func(ctx context.Context, input ir.Value) (ir.Value, error) {
		prompt, err := promptOf(input)
		if err != nil {
			return ir.Null, fmt.Errorf("std.ai.openai: %w", err)
		}
		resp, err := opts.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(opts.Model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
		})
		if err != nil {
			return ir.Null, fmt.Errorf("std.ai.openai: %w", err)
		}
		text := ""
		if len(resp.Choices) > 0 {
			text = resp.Choices[0].Message.Content
		}
		return ir.MapValue([]string{"text"}, map[string]ir.Value{"text": ir.StringValue(text)}), nil
	}
}

func bedrockTool(opts BedrockOptions) tools.Func {
	return func(ctx context.Context, input ir.Value) (ir.Value, error) {
		prompt, err := promptOf(input)
		if err != nil {
			return ir.Null, fmt.Errorf("std.ai.bedrock: %w", err)
		}
		out, err := opts.Client.Converse(ctx, &bedrockruntime.ConverseInput{
			ModelId: &opts.Model,
			Messages: []brtypes.Message{
				{
					Role:    brtypes.ConversationRoleUser,
					Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: prompt}},
				},
			},
		})
		if err != nil {
			return ir.Null, fmt.Errorf("std.ai.bedrock: %w", err)
		}
		text := ""
		if msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage); ok {
			for _, c := range msg.Value.Content {
				if tb, ok := c.(*brtypes.ContentBlockMemberText); ok {
					text += tb.Value
				}
			}
		}
		return ir.MapValue([]string{"text"}, map[string]ir.Value{"text": ir.StringValue(text)}), nil
	}
}
