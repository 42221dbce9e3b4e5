package llm

import "context"

// purposeKey carries the pipeline step that issued a request, e.g.
// "passage-generate". It ends up on the event row and the log line.
type purposeKey struct{}

// UnknownPurpose labels requests made without WithPurpose.
const UnknownPurpose = "unknown"

// WithPurpose tags ctx with the pipeline step issuing the next request.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the purpose set by WithPurpose, or UnknownPurpose.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return UnknownPurpose
}
