package worker

import (
	"context"
	"sort"

	"conflux/internal/model"
)

// ItemScorer scores one analyzed content record against the rubric
type ItemScorer interface {
	Score(ctx context.Context, content model.AnalyzedContent) (*model.RubricScore, error)
}

// ScoreJob scores one item; Index preserves batch order across workers
type ScoreJob struct {
	Index   int
	Content model.AnalyzedContent
	Scorer  ItemScorer
}

// Execute runs the job
func (j *ScoreJob) Execute(ctx context.Context) Result {
	score, err := j.Scorer.Score(ctx, j.Content)
	return &ScoreOutcome{Index: j.Index, Score: score, Err: err}
}

// ScoreOutcome is the per-item result of a batch scoring run
type ScoreOutcome struct {
	Index int
	Score *model.RubricScore
	Err   error
}

// GetError returns the scoring error, if any
func (o *ScoreOutcome) GetError() error {
	return o.Err
}

// BatchScorer fans a batch of analyzed items over a worker pool
type BatchScorer struct {
	scorer      ItemScorer
	concurrency int
}

func NewBatchScorer(scorer ItemScorer, concurrency int) *BatchScorer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchScorer{scorer: scorer, concurrency: concurrency}
}

// ScoreAll scores every item concurrently and returns outcomes in input
// order. Per-item failures are carried in the outcome, never dropped.
func (b *BatchScorer) ScoreAll(ctx context.Context, items []model.AnalyzedContent) []*ScoreOutcome {
	if len(items) == 0 {
		return []*ScoreOutcome{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for i, item := range items {
		pool.Submit(&ScoreJob{Index: i, Content: item, Scorer: b.scorer})
	}

	results := pool.Wait()

	outcomes := make([]*ScoreOutcome, 0, len(results))
	for _, r := range results {
		outcomes = append(outcomes, r.(*ScoreOutcome))
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })
	return outcomes
}
