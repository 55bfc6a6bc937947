package agent

import "context"

// OutputSink receives free-form lines a tool wants rendered immediately
// (line-count summaries, diffs, live bash echo) without waiting for the
// call to finish and without threading a channel through every Tool.Call
// signature.
type OutputSink func(line string)

type outputSinkKey struct{}

// WithOutputSink attaches sink to ctx so tool implementations can reach it
// via EmitOutput during Call.
func WithOutputSink(ctx context.Context, sink OutputSink) context.Context {
	return context.WithValue(ctx, outputSinkKey{}, sink)
}

// EmitOutput sends line to the sink attached to ctx, if any. A context with
// no sink attached (e.g. in unit tests calling a tool directly) silently
// discards the line.
func EmitOutput(ctx context.Context, line string) {
	if sink, ok := ctx.Value(outputSinkKey{}).(OutputSink); ok && sink != nil {
		sink(line)
	}
}
