package llm

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// CompleteStream generates a chat completion over a streaming connection.
// onChunk receives the full accumulated text after every delta, so a
// consumer can replace its rendered output rather than append. The complete
// text is returned once the stream ends.
func (c *Client) CompleteStream(
	ctx context.Context,
	messages []Message,
	model string,
	onChunk func(accumulated string),
) (string, error) {
	model = c.ResolveModel(model)

	c.logger.Debug("Streaming completion request",
		zap.String("model", model),
		zap.Int("message_count", len(messages)))

	start := time.Now()

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	})
	if err != nil {
		c.logger.Error("Failed to create completion stream", zap.Error(err))
		return "", ClassifyError(err)
	}
	defer stream.Close()

	var builder strings.Builder
	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.logger.Error("Stream receive error", zap.Error(err))
			return builder.String(), ClassifyError(err)
		}

		if len(response.Choices) == 0 {
			continue
		}

		if delta := response.Choices[0].Delta.Content; delta != "" {
			builder.WriteString(delta)
			if onChunk != nil {
				onChunk(builder.String())
			}
		}
	}

	c.logger.Info("Streaming completion finished",
		zap.Int("chars", builder.Len()),
		zap.Duration("elapsed", time.Since(start)))

	return builder.String(), nil
}
