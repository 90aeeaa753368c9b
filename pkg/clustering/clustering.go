// Package clustering rebuilds comparison groups: canonical products that share
// brand, product type and size, so prices can be compared across them.
package clustering

import (
	"context"
	"sort"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sorrel/pkg/metrics"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/runctx"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const passName = "cluster"

// Cluster is one group to be written: its key and members ascending by id.
type Cluster struct {
	Key        models.GroupKey
	ProductIDs []int64
}

// KeyOf returns the grouping key of p. Products without a brand or missing any
// of the three attributes are not grouped.
func KeyOf(p models.CanonicalProduct) (models.GroupKey, bool) {
	if p.Brand == nil {
		return models.GroupKey{}, false
	}
	productType, ok := p.Attributes.Get(models.AttrProductType)
	if !ok {
		return models.GroupKey{}, false
	}
	sizeValue, ok := p.Attributes.Get(models.AttrSizeValue)
	if !ok {
		return models.GroupKey{}, false
	}
	sizeUnit, ok := p.Attributes.Get(models.AttrSizeUnit)
	if !ok {
		return models.GroupKey{}, false
	}
	return models.GroupKey{
		Brand:       strings.ToLower(*p.Brand),
		ProductType: productType,
		SizeValue:   sizeValue,
		SizeUnit:    sizeUnit,
	}, true
}

// BuildGroups partitions the canonical products by key and keeps partitions
// with more than one member, ordered by key.
func BuildGroups(products []models.CanonicalProduct) []Cluster {
	byKey := make(map[models.GroupKey][]int64)
	for _, p := range products {
		if !p.IsCanonical() {
			continue
		}
		key, ok := KeyOf(p)
		if !ok {
			continue
		}
		byKey[key] = append(byKey[key], p.ID)
	}

	clusters := make([]Cluster, 0, len(byKey))
	for key, ids := range byKey {
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		clusters = append(clusters, Cluster{Key: key, ProductIDs: ids})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Key.Less(clusters[j].Key) })
	return clusters
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

// RebuildGroups replaces every comparison group in one unit of work and
// returns the number of groups written.
func (s *Service) RebuildGroups(ctx context.Context) (int, error) {
	ctx = runctx.SetPass(ctx, passName)
	ctx, span := tracing.StartSpan(ctx, "clustering.Service.RebuildGroups")
	defer span.End()

	var written int
	err := s.catalog.WithinTx(ctx, func(ctx context.Context) error {
		written = 0
		if err := s.catalog.Groups().DeleteAll(ctx); err != nil {
			return err
		}

		products, err := s.catalog.Products().ListCanonical(ctx)
		if err != nil {
			return err
		}

		for _, c := range BuildGroups(products) {
			if _, err := s.catalog.Groups().Create(ctx, c.Key, c.ProductIDs); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	metrics.RecordMaintenancePass(passName, metrics.Status(err), int64(written))
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Error("Failed to rebuild comparison groups")
		return 0, tracing.RecordError(span, err)
	}

	s.log.WithContext(ctx).WithFields(runctx.Fields(ctx)).WithField("groups", written).Info("Rebuilt comparison groups")
	return written, nil
}
