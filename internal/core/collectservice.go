package core

import (
	"context"
	"fmt"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// CollectRequest selects the pull requests to scan. With no PRs listed, the
// closed pull requests against BaseBranch are scanned.
type CollectRequest struct {
	PRs        []int
	BaseBranch string
}

// CollectService gathers build observations and merges them into history.
type CollectService interface {
	Run(ctx context.Context, req CollectRequest, history models.History) (models.History, CollectResult, error)
}

type collectService struct {
	lister     PullRequestLister
	collector  ObservationCollector
	reconciler ResultReconciler
	events     EventLogger
}

// NewCollectService wires a collect service. lister is only needed when
// requests do not name their PRs; events may be nil.
func NewCollectService(lister PullRequestLister, collector ObservationCollector, reconciler ResultReconciler, events EventLogger) CollectService {
	return &collectService{
		lister:     lister,
		collector:  collector,
		reconciler: reconciler,
		events:     events,
	}
}

func (s *collectService) Run(ctx context.Context, req CollectRequest, history models.History) (models.History, CollectResult, error) {
	logger := slogcontext.FromCtx(ctx)

	prs := req.PRs
	if len(prs) == 0 {
		if s.lister == nil {
			return nil, CollectResult{}, fmt.Errorf("no pull requests given and no pull request lister configured")
		}
		closed, err := s.lister.ListClosedPullRequests(ctx, req.BaseBranch)
		if err != nil {
			return nil, CollectResult{}, fmt.Errorf("listing closed pull requests: %w", err)
		}
		for _, pr := range closed {
			prs = append(prs, pr.Number)
		}
		logger.Info("listed closed pull requests", "count", len(prs), "base", req.BaseBranch)
	}

	result, err := s.collector.CollectAll(ctx, prs)
	if err != nil {
		return nil, CollectResult{}, err
	}

	merged := s.reconciler.Merge(ctx, result.Batches, history)
	logger.Info("merged build observations", "builds", result.Builds, "skipped", result.Skipped, "platforms", len(merged))
	if s.events != nil {
		_ = s.events.LogEvent("collect.completed", map[string]any{
			"prs":       len(prs),
			"builds":    result.Builds,
			"skipped":   result.Skipped,
			"platforms": len(merged),
		})
	}
	return merged, result, nil
}
