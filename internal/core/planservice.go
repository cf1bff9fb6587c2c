package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	slogcontext "github.com/veqryn/slog-context"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// PlanRequest holds the inputs of one planning run.
type PlanRequest struct {
	Previous      models.Node
	Current       models.Node
	Policy        models.SupportPolicy
	Layout        models.SnapshotLayout
	ShortlistSize int
	ComponentName string
}

// PlanOutcome is what a planning run produced.
type PlanOutcome struct {
	Diff         models.Node
	Changes      []Change
	Instructions models.InstructionSet
	Commands     []string
	// Snapshot is the snapshot to persist. Catalog-rejected component
	// versions keep their previous value.
	Snapshot models.Node
	Rejected []string
	Catalog  *CatalogResult
}

// PlanService runs diff, catalog admission and planning for one snapshot pair.
type PlanService interface {
	Run(ctx context.Context, req PlanRequest) (PlanOutcome, error)
}

type planService struct {
	filter  CatalogAvailabilityFilter
	planner TestMatrixPlanner
	events  EventLogger
}

// NewPlanService wires a plan service. filter and events may be nil; without
// a filter every component version is admitted.
func NewPlanService(filter CatalogAvailabilityFilter, planner TestMatrixPlanner, events EventLogger) PlanService {
	return &planService{filter: filter, planner: planner, events: events}
}

func (s *planService) Run(ctx context.Context, req PlanRequest) (PlanOutcome, error) {
	logger := slogcontext.FromCtx(ctx)

	diff := Diff(req.Previous, req.Current)
	_, platforms := SnapshotReleases(req.Current, req.Layout)

	var rejected []string
	var catalog *CatalogResult
	if proposedNode, ok := diff.NodeAt(req.Layout.ComponentKey); ok && s.filter != nil {
		proposed := proposedNode.Strings()
		admitted, result, err := s.filter.Filter(ctx, proposed, platforms, req.Policy)
		if err != nil {
			logger.Warn("catalog check failed, deferring all new component versions to a later run", "error", err)
			admitted = map[string]string{}
		}
		catalog = result
		for minor := range proposed {
			if _, ok := admitted[minor]; !ok {
				rejected = append(rejected, minor)
			}
		}
		sort.Strings(rejected)
		for _, minor := range rejected {
			logger.Warn("component version not yet in catalog", "minor", minor, "version", proposed[minor])
			s.logEvent("plan.catalog_rejected", map[string]any{"minor": minor, "version": proposed[minor]})
		}
		diff = dropComponents(diff, req.Layout, rejected)
	}

	// Rejected minors leave the release list too, so the shortlist only
	// holds published versions.
	snapshot := RetainRejected(req.Previous, req.Current, req.Layout, rejected)
	components, _ := SnapshotReleases(snapshot, req.Layout)

	instructions, err := s.planner.Plan(ctx, PlanInput{
		Diff:              diff,
		Layout:            req.Layout,
		PlatformReleases:  platforms,
		ComponentReleases: components,
		ShortlistSize:     req.ShortlistSize,
		Policy:            req.Policy,
		Catalog:           catalog,
	})
	if err != nil {
		return PlanOutcome{}, fmt.Errorf("planning tests: %w", err)
	}

	out := PlanOutcome{
		Diff:         diff,
		Changes:      Changes(req.Previous, diff),
		Instructions: instructions,
		Commands:     RenderTestCommands(req.ComponentName, instructions),
		Snapshot:     snapshot,
		Rejected:     rejected,
		Catalog:      catalog,
	}

	for _, c := range out.Changes {
		logger.Info("version changed", "path", strings.Join(c.Path, "/"), "old", c.OldValue, "new", c.NewValue)
		s.logEvent("plan.version_changed", map[string]any{
			"path":      strings.Join(c.Path, "/"),
			"category":  c.Path[0],
			"old_value": c.OldValue,
			"new_value": c.NewValue,
		})
	}
	s.logEvent("plan.completed", map[string]any{
		"changes":  len(out.Changes),
		"commands": len(out.Commands),
		"rejected": len(out.Rejected),
	})
	return out, nil
}

func (s *planService) logEvent(eventType string, data map[string]any) {
	if s.events != nil {
		_ = s.events.LogEvent(eventType, data)
	}
}

func dropComponents(diff models.Node, layout models.SnapshotLayout, minors []string) models.Node {
	if len(minors) == 0 {
		return diff
	}
	out := diff.Clone()
	comps, ok := out.NodeAt(layout.ComponentKey)
	if !ok {
		return out
	}
	for _, m := range minors {
		delete(comps, m)
	}
	if len(comps) == 0 {
		delete(out, layout.ComponentKey)
	}
	return out
}
