package orchestration

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-realtime/core/items"
	"github.com/koscakluka/ema-realtime/core/realtime"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func orchestrationTools(o *Orchestrator) []realtime.Tool {
	return []realtime.Tool{
		realtime.NewTool("mute_control", "Mute or unmute the user's microphone",
			func(parameters struct {
				IsMuted bool `json:"is_muted" jsonschema:"description=Whether the microphone should be muted"`
			}) (string, error) {
				if err := o.SetMuted(o.baseContext, parameters.IsMuted); err != nil {
					return "", err
				}
				return "Success. Respond with a very short phrase", nil
			}),
		realtime.NewTool("profile_control", "Switch to another instruction profile, might be referred to as a persona or mode",
			func(parameters struct {
				ProfileID string `json:"profile_id" jsonschema:"description=ID of the profile to switch to"`
			}) (string, error) {
				if err := o.SetProfile(o.baseContext, parameters.ProfileID); err != nil {
					return "", err
				}
				return "Success. Respond with a very short phrase in the new style", nil
			}),
	}
}

// answerToolCall runs the tool the assistant called, returns its output and
// asks for a follow-up response.
func (o *Orchestrator) answerToolCall(ctx context.Context, item items.Item) {
	if item.Formatted.Tool == nil {
		return
	}
	toolCall := *item.Formatted.Tool

	ctx, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", toolCall.Name))

	output, err := o.callTool(toolCall)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.WarnContext(ctx, "tool call failed", "tool", toolCall.Name, "error", err)
		output = fmt.Sprintf("Error: %v", err)
	}

	if err := o.transport.SendFunctionOutput(toolCall.CallID, output); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.WarnContext(ctx, "failed to send tool output", "tool", toolCall.Name, "error", err)
		return
	}
	if err := o.transport.CreateResponse(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.WarnContext(ctx, "failed to request response after tool call", "tool", toolCall.Name, "error", err)
	}
}

func (o *Orchestrator) callTool(toolCall items.ToolCall) (string, error) {
	o.mu.Lock()
	tool, ok := o.sessionConfig.FindTool(toolCall.Name)
	o.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("tool not found: %s", toolCall.Name)
	}

	response, err := tool.Execute(toolCall.Arguments)
	if err != nil {
		return "", fmt.Errorf("failed to execute tool %q: %w", toolCall.Name, err)
	}
	return response, nil
}
