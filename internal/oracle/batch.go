package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/thinkwright/agent-trajectory/internal/loader"
)

// ProgressCallback is called after each conversation is evaluated. It may
// be called from several goroutines at once.
type ProgressCallback func(done, total int, conversationID string)

// EvaluateEach runs EvaluateSingle over conversations with at most
// concurrency calls in flight. Results line up with the input slice. The
// first failure cancels outstanding calls and is returned as a
// *FailureError; a panicking oracle counts as a failure.
func EvaluateEach(ctx context.Context, o Oracle, conversations []loader.Conversation, concurrency int, progress ProgressCallback) ([]Evaluation, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([]Evaluation, len(conversations))
	total := len(conversations)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range conversations {
		i := i
		c := conversations[i]
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &FailureError{Op: OpEvaluateSingle, ConversationID: c.ConversationID, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			if err := gctx.Err(); err != nil {
				return &FailureError{Op: OpEvaluateSingle, ConversationID: c.ConversationID, Err: err}
			}
			eval, err := o.EvaluateSingle(gctx, c)
			if err != nil {
				var fe *FailureError
				if !errors.As(err, &fe) {
					err = &FailureError{Op: OpEvaluateSingle, ConversationID: c.ConversationID, Err: err}
				}
				return err
			}
			results[i] = eval
			n := done.Add(1)
			if progress != nil {
				progress(int(n), total, c.ConversationID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
