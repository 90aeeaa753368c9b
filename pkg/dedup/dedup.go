// Package dedup runs the post-hoc cleanup passes over the catalog: merging
// color-only and brand-named products and renaming the color-only names left.
package dedup

import (
	"context"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/runctx"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const (
	PassColorMerge   = "dedup_color_merge"
	PassBrandMerge   = "dedup_brand_merge"
	PassRenameColors = "dedup_rename_colors"

	DefaultBrandGroupLimit = 20
)

// ColorNames are display names that carry nothing but a color.
var ColorNames = []string{"ורוד", "לבן", "שחור", "תכלת", "כחול", "ירוק", "אדום", "צהוב"}

type PassResult struct {
	Pass    string      `json:"pass"`
	Groups  int         `json:"groups"`
	Renamed int         `json:"renamed,omitempty"`
	Merged  MergeResult `json:"merged"`
}

func (r PassResult) Rows() int64 {
	return r.Merged.Rows() + int64(r.Renamed)
}

type Service struct {
	log             ectologger.Logger
	catalog         store.Catalog
	merger          *Merger
	brandGroupLimit int
}

type Option func(*Service)

// WithBrandGroupLimit caps how many brand==name groups one pass merges.
func WithBrandGroupLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.brandGroupLimit = n
		}
	}
}

func NewService(log ectologger.Logger, catalog store.Catalog, opts ...Option) *Service {
	s := &Service{
		log:             log,
		catalog:         catalog,
		merger:          NewMerger(catalog),
		brandGroupLimit: DefaultBrandGroupLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes every pass in order. Each pass commits on its own; the first
// failure stops the run and earlier passes stay committed.
func (s *Service) Run(ctx context.Context) ([]PassResult, error) {
	passes := []func(context.Context) (PassResult, error){
		s.MergeColorOnly,
		s.MergeBrandNamed,
		s.RenameColorOnly,
	}
	results := make([]PassResult, 0, len(passes))
	for _, pass := range passes {
		res, err := pass(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// MergeColorOnly merges products named only by a color, per (color, brand),
// into the lowest id of each group.
func (s *Service) MergeColorOnly(ctx context.Context) (PassResult, error) {
	return s.runPass(ctx, PassColorMerge, func(ctx context.Context, res *PassResult) error {
		products, err := s.catalog.Products().FindByDisplayNames(ctx, ColorNames)
		if err != nil {
			return err
		}

		// a missing brand and an empty one are different groups
		type key struct {
			color    string
			hasBrand bool
			brand    string
		}
		groups := make(map[key][]int64)
		var order []key
		for _, p := range products {
			k := key{color: p.DisplayName, hasBrand: p.Brand != nil, brand: p.BrandName()}
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], p.ID)
		}

		for _, k := range order {
			if err := s.mergeGroup(ctx, res, groups[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

// MergeBrandNamed merges products whose display name is just their brand. Only
// the largest groups are merged, up to the configured limit.
func (s *Service) MergeBrandNamed(ctx context.Context) (PassResult, error) {
	return s.runPass(ctx, PassBrandMerge, func(ctx context.Context, res *PassResult) error {
		products, err := s.catalog.Products().FindBrandNamed(ctx)
		if err != nil {
			return err
		}

		byBrand := make(map[string][]int64)
		for _, p := range products {
			byBrand[p.BrandName()] = append(byBrand[p.BrandName()], p.ID)
		}
		brands := make([]string, 0, len(byBrand))
		for b, ids := range byBrand {
			if len(ids) > 1 {
				brands = append(brands, b)
			}
		}
		sort.Slice(brands, func(i, j int) bool {
			ni, nj := len(byBrand[brands[i]]), len(byBrand[brands[j]])
			if ni != nj {
				return ni > nj
			}
			return brands[i] < brands[j]
		})
		if len(brands) > s.brandGroupLimit {
			brands = brands[:s.brandGroupLimit]
		}

		for _, b := range brands {
			if err := s.mergeGroup(ctx, res, byBrand[b]); err != nil {
				return err
			}
		}
		return nil
	})
}

// RenameColorOnly renames color-only products with a usable brand to
// "{brand} - {color}" and re-indexes them.
func (s *Service) RenameColorOnly(ctx context.Context) (PassResult, error) {
	return s.runPass(ctx, PassRenameColors, func(ctx context.Context, res *PassResult) error {
		products, err := s.catalog.Products().FindByDisplayNames(ctx, ColorNames)
		if err != nil {
			return err
		}
		for _, p := range products {
			brand := strings.TrimSpace(p.BrandName())
			if brand == "" || brand == p.DisplayName {
				continue
			}
			name := brand + " - " + p.DisplayName
			if err := s.catalog.Products().Rename(ctx, p.ID, name, features.Extract(name)); err != nil {
				return err
			}
			res.Renamed++
		}
		return nil
	})
}

// mergeGroup merges ids (ascending) into the first one.
func (s *Service) mergeGroup(ctx context.Context, res *PassResult, ids []int64) error {
	if len(ids) < 2 {
		return nil
	}
	merged, err := s.merger.Merge(ctx, ids[0], ids[1:])
	if err != nil {
		return err
	}
	res.Groups++
	res.Merged.add(merged)
	return nil
}

func (s *Service) runPass(ctx context.Context, pass string, fn func(context.Context, *PassResult) error) (PassResult, error) {
	ctx = runctx.SetPass(ctx, pass)
	ctx, span := tracing.StartSpan(ctx, "dedup.Service."+pass)
	defer span.End()

	log := s.log.WithContext(ctx).WithFields(runctx.Fields(ctx))

	var res PassResult
	err := s.catalog.WithinTx(ctx, func(ctx context.Context) error {
		res = PassResult{Pass: pass}
		return fn(ctx, &res)
	})
	if err != nil {
		metrics.RecordMaintenancePass(pass, metrics.Status(err), 0)
		log.WithError(err).Error("Dedup pass rolled back")
		return PassResult{Pass: pass}, tracing.RecordError(span, err)
	}

	metrics.RecordMaintenancePass(pass, metrics.Status(nil), res.Rows())
	log.WithFields(map[string]any{
		"groups":  res.Groups,
		"deleted": res.Merged.Deleted,
		"renamed": res.Renamed,
	}).Info("Dedup pass committed")
	return res, nil
}

// Report summarizes catalog hygiene.
type Report struct {
	Total             int `json:"total"`
	DistinctNameBrand int `json:"distinct_name_brand"`
	ColorOnly         int `json:"color_only"`
	ShortNames        int `json:"short_names"`
	MissingBrand      int `json:"missing_brand"`
	BrandNamed        int `json:"brand_named"`
}

// ShortNameMaxLen is the longest display name, in characters, counted as short.
const ShortNameMaxLen = 3

func (s *Service) Report(ctx context.Context) (*Report, error) {
	ctx, span := tracing.StartSpan(ctx, "dedup.Service.Report")
	defer span.End()

	products, err := s.catalog.Products().ListAll(ctx)
	if err != nil {
		return nil, tracing.RecordError(span, err)
	}
	return BuildReport(products), nil
}

func BuildReport(products []models.CanonicalProduct) *Report {
	colors := features.NewTokenSet(ColorNames...)
	type pair struct{ name, brand string }
	distinct := make(map[pair]struct{})

	r := &Report{Total: len(products)}
	for _, p := range products {
		name := strings.TrimSpace(p.DisplayName)
		brand := strings.TrimSpace(p.BrandName())
		distinct[pair{name: p.DisplayName, brand: p.BrandName()}] = struct{}{}

		if colors.Has(p.DisplayName) {
			r.ColorOnly++
		}
		if len([]rune(name)) <= ShortNameMaxLen {
			r.ShortNames++
		}
		if brand == "" {
			r.MissingBrand++
		}
		if p.Brand != nil && *p.Brand == p.DisplayName {
			r.BrandNamed++
		}
	}
	r.DistinctNameBrand = len(distinct)
	return r
}
