// Package consolidation merges reviewed groups of duplicate canonical products
// and finds candidate duplicates for review.
package consolidation

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/Gobusters/ectologger"

	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/runctx"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const passName = "consolidate"

// Member is one product of a reviewed duplicate group.
type Member struct {
	ProductID   int64
	DisplayName string
	// IsCanonical is the reviewer's pick. It is kept for reporting only; the
	// representative is always the shortest name.
	IsCanonical bool
}

type GroupResult struct {
	GroupID        int64 `json:"group_id"`
	Representative int64 `json:"representative"`
	Repointed      int64 `json:"repointed"`
	// ReviewerPick is the member flagged canonical in the review file, if any.
	ReviewerPick int64 `json:"reviewer_pick,omitempty"`
}

type Result struct {
	Groups    []GroupResult `json:"groups"`
	Skipped   int           `json:"skipped"`
	Repointed int64         `json:"repointed"`
}

// Representative returns the member with the shortest display name, counted in
// characters as stored. Ties keep the earliest member.
func Representative(members []Member) (Member, bool) {
	if len(members) == 0 {
		return Member{}, false
	}
	best := members[0]
	bestLen := utf8.RuneCountInString(best.DisplayName)
	for _, m := range members[1:] {
		if n := utf8.RuneCountInString(m.DisplayName); n < bestLen {
			best, bestLen = m, n
		}
	}
	return best, true
}

type Service struct {
	log     ectologger.Logger
	catalog store.Catalog
}

func NewService(log ectologger.Logger, catalog store.Catalog) *Service {
	return &Service{
		log:     log,
		catalog: catalog,
	}
}

// Apply consolidates every group into its representative in one unit of work.
// Rows already pointing at a member are repointed too, so every row ends one
// hop from a canonical product. Any failure rolls back the whole batch.
func (s *Service) Apply(ctx context.Context, groups map[int64][]Member) (*Result, error) {
	ctx = runctx.SetPass(ctx, passName)
	ctx, span := tracing.StartSpan(ctx, "consolidation.Service.Apply")
	defer span.End()

	groupIDs := make([]int64, 0, len(groups))
	for id := range groups {
		groupIDs = append(groupIDs, id)
	}
	sort.Slice(groupIDs, func(i, j int) bool { return groupIDs[i] < groupIDs[j] })

	log := s.log.WithContext(ctx).WithFields(runctx.Fields(ctx))

	var result *Result
	err := s.catalog.WithinTx(ctx, func(ctx context.Context) error {
		result = &Result{}
		for _, groupID := range groupIDs {
			members := groups[groupID]
			if len(members) < 2 {
				log.WithField("group_id", groupID).Warn("Skipping review group with fewer than two members")
				result.Skipped++
				continue
			}

			rep, _ := Representative(members)
			ids := make([]int64, len(members))
			var pick int64
			for i, m := range members {
				ids[i] = m.ProductID
				if m.IsCanonical && pick == 0 {
					pick = m.ProductID
				}
			}

			n, err := s.catalog.Products().Consolidate(ctx, ids, rep.ProductID)
			if err != nil {
				return err
			}
			if pick != 0 && pick != rep.ProductID {
				log.WithFields(map[string]any{
					"group_id":       groupID,
					"representative": rep.ProductID,
					"reviewer_pick":  pick,
				}).Info("Reviewer pick differs from shortest-name representative")
			}

			result.Groups = append(result.Groups, GroupResult{
				GroupID:        groupID,
				Representative: rep.ProductID,
				Repointed:      n,
				ReviewerPick:   pick,
			})
			result.Repointed += n
		}

		return verifyRedirects(ctx, s.catalog)
	})
	metrics.RecordMaintenancePass(passName, metrics.Status(err), repointed(result, err))
	if err != nil {
		log.WithError(err).Error("Consolidation batch rolled back")
		return nil, tracing.RecordError(span, err)
	}

	log.WithFields(map[string]any{
		"groups":    len(result.Groups),
		"skipped":   result.Skipped,
		"repointed": result.Repointed,
	}).Info("Consolidation batch committed")
	return result, nil
}

// verifyRedirects fails the unit of work when any row would be left pointing at
// a missing or merged-away product.
func verifyRedirects(ctx context.Context, catalog store.Catalog) error {
	all, err := catalog.Products().ListAll(ctx)
	if err != nil {
		return err
	}
	if violations := models.CheckRedirects(all); len(violations) > 0 {
		v := violations[0]
		return sorrelerrors.NewIntegrityViolation("consolidation.verify", v.ProductID,
			"%d redirect violation(s), first: %s", len(violations), v)
	}
	return nil
}

func repointed(result *Result, err error) int64 {
	if err != nil || result == nil {
		return 0
	}
	return result.Repointed
}

// Verify lists every row left pointing at a missing or merged-away product.
func (s *Service) Verify(ctx context.Context) ([]models.RedirectViolation, error) {
	ctx, span := tracing.StartSpan(ctx, "consolidation.Service.Verify")
	defer span.End()

	all, err := s.catalog.Products().ListAll(ctx)
	if err != nil {
		return nil, tracing.RecordError(span, err)
	}
	return models.CheckRedirects(all), nil
}
