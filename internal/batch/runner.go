// Package batch drives a table of questions through independent agent
// conversations, one fresh conversation per question.
package batch

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/copilot-qa/internal/extract"
	"github.com/sells-group/copilot-qa/internal/model"
	"github.com/sells-group/copilot-qa/internal/resilience"
)

// Agent is the conversational backend consumed by the runner.
type Agent interface {
	// StartConversation opens a brand-new conversation and returns its ID.
	StartConversation(ctx context.Context) (string, error)
	// AskQuestion submits text on an open conversation and returns the
	// turn's ordered reply activities.
	AskQuestion(ctx context.Context, conversationID, text string) ([]model.Activity, error)
}

// Summary tallies one batch run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Runner sequences question rows through the agent.
type Runner struct {
	agent       Agent
	limiter     *rate.Limiter
	concurrency int
	retry       resilience.Policy
}

// Option configures the runner.
type Option func(*Runner)

// WithDelay sets the inter-request pacing interval. Zero disables pacing.
func WithDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			r.limiter = nil
		}
	}
}

// WithConcurrency allows up to n rows in flight. Results are still emitted
// in input order, the pacing limiter is shared across workers, and each row
// gets its own conversation. Default 1: strictly sequential.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 1 {
			r.concurrency = n
		}
	}
}

// WithRetry retries transient StartConversation/AskQuestion failures under
// the policy. Off by default: a failure is recorded on the row immediately.
func WithRetry(p resilience.Policy) Option {
	return func(r *Runner) {
		r.retry = p
	}
}

// NewRunner creates a runner with a 1s pacing interval and no retries.
func NewRunner(agent Agent, opts ...Option) *Runner {
	r := &Runner{
		agent:       agent,
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run answers every row, in order. Each row is processed in its own
// conversation; a row failure never aborts the batch — the failed row is
// emitted with an error marker in its answer column. Input rows are not
// mutated.
func (r *Runner) Run(ctx context.Context, rows []*model.Row) ([]*model.Row, Summary) {
	start := time.Now()
	results := make([]*model.Row, len(rows))
	var succeeded atomic.Int64

	if r.concurrency > 1 {
		g := new(errgroup.Group)
		g.SetLimit(r.concurrency)
		for i, row := range rows {
			g.Go(func() error {
				out, ok := r.answerRow(ctx, i, len(rows), row)
				results[i] = out
				if ok {
					succeeded.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, row := range rows {
			out, ok := r.answerRow(ctx, i, len(rows), row)
			results[i] = out
			if ok {
				succeeded.Add(1)
			}
		}
	}

	s := Summary{
		Total:     len(rows),
		Succeeded: int(succeeded.Load()),
		Duration:  time.Since(start),
	}
	s.Failed = s.Total - s.Succeeded

	zap.L().Info("batch complete",
		zap.Int("total", s.Total),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("failed", s.Failed),
		zap.Duration("duration", s.Duration),
	)

	return results, s
}

// answerRow runs one question through a fresh conversation and returns the
// augmented row copy plus whether the turn succeeded.
func (r *Runner) answerRow(ctx context.Context, idx, total int, row *model.Row) (*model.Row, bool) {
	question := row.Question()
	zap.L().Info("asking question",
		zap.Int("row", idx+1),
		zap.Int("total", total),
		zap.String("question", question),
	)

	out := row.Clone()
	result, err := r.ask(ctx, question)
	if err != nil {
		zap.L().Error("question failed",
			zap.Int("row", idx+1),
			zap.String("question", question),
			zap.Error(err),
		)
		out.Set(model.ColAnswer, "Error: "+err.Error())
		out.Set(model.ColCitations, "")
		out.Set(model.ColCitationTexts, "")
		out.Set(model.ColSearchTerms, "")
		return out, false
	}

	out.Set(model.ColAnswer, result.Answer)
	out.Set(model.ColCitations, extract.FormatCitations(result.Citations))
	out.Set(model.ColCitationTexts, extract.FormatCitationTexts(result.Citations))
	out.Set(model.ColSearchTerms, extract.FormatSearchTerms(result.SearchTerms))
	return out, true
}

func (r *Runner) ask(ctx context.Context, question string) (extract.Result, error) {
	var zero extract.Result

	// Shared limiter: paces conversation opens across the whole batch.
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return zero, err
		}
	}

	conversationID, err := resilience.DoVal(ctx, r.retry, "start conversation",
		func(ctx context.Context) (string, error) {
			return r.agent.StartConversation(ctx)
		})
	if err != nil {
		return zero, err
	}

	activities, err := resilience.DoVal(ctx, r.retry, "ask question",
		func(ctx context.Context) ([]model.Activity, error) {
			return r.agent.AskQuestion(ctx, conversationID, question)
		})
	if err != nil {
		return zero, err
	}

	return extract.Extract(activities), nil
}
