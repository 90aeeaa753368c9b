package memory

import (
	"context"

	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store"
)

type productRepo struct {
	s *Store
}

func (r *productRepo) Create(ctx context.Context, p store.NewProduct, tokens features.TokenSet) (*models.CanonicalProduct, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	now := r.s.now()
	product := models.CanonicalProduct{
		ID:          st.nextProductID,
		DisplayName: p.DisplayName,
		Brand:       p.Brand,
		Attributes:  p.Attributes,
		CanonicalOf: st.nextProductID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	st.nextProductID++
	st.products[product.ID] = product
	st.index(product.ID, tokens)
	return &product, nil
}

func (r *productRepo) Get(ctx context.Context, id int64) (*models.CanonicalProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.state.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	return &p, nil
}

func (r *productRepo) filter(keep func(models.CanonicalProduct) bool) []models.CanonicalProduct {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.CanonicalProduct, 0)
	for _, p := range r.s.state.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out
}

func (r *productRepo) ListCanonical(ctx context.Context) ([]models.CanonicalProduct, error) {
	return r.filter(models.CanonicalProduct.IsCanonical), nil
}

func (r *productRepo) ListAll(ctx context.Context) ([]models.CanonicalProduct, error) {
	return r.filter(func(models.CanonicalProduct) bool { return true }), nil
}

func (r *productRepo) FindCandidates(ctx context.Context, tokens features.TokenSet) ([]models.CanonicalProduct, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st := r.s.state
	seen := make(map[int64]struct{})
	out := make([]models.CanonicalProduct, 0)
	for t := range tokens {
		for id := range st.postings[t] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if p := st.products[id]; p.IsCanonical() {
				out = append(out, p)
			}
		}
	}
	sortProducts(out)
	return out, nil
}

func (r *productRepo) FindByDisplayNames(ctx context.Context, names []string) ([]models.CanonicalProduct, error) {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	return r.filter(func(p models.CanonicalProduct) bool {
		_, ok := wanted[p.DisplayName]
		return ok
	}), nil
}

func (r *productRepo) FindBrandNamed(ctx context.Context) ([]models.CanonicalProduct, error) {
	return r.filter(func(p models.CanonicalProduct) bool {
		return p.Brand != nil && *p.Brand == p.DisplayName
	}), nil
}

func (r *productRepo) Consolidate(ctx context.Context, memberIDs []int64, target int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	if _, ok := st.products[target]; !ok {
		return 0, sorrelerrors.NewIntegrityViolation("product.consolidate", target, "representative does not exist")
	}

	members := idSet(memberIDs)
	members[target] = struct{}{}
	now := r.s.now()
	var n int64
	for id, p := range st.products {
		_, isMember := members[id]
		_, pointsAtMember := members[p.CanonicalOf]
		if !isMember && !pointsAtMember {
			continue
		}
		p.CanonicalOf = target
		p.UpdatedAt = now
		st.products[id] = p
		n++
	}
	return n, nil
}

func (r *productRepo) Redirect(ctx context.Context, fromIDs []int64, target int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	if _, ok := st.products[target]; !ok {
		return 0, sorrelerrors.NewIntegrityViolation("product.redirect", target, "redirect target does not exist")
	}

	from := idSet(fromIDs)
	now := r.s.now()
	var n int64
	for id, p := range st.products {
		if _, self := from[id]; self {
			continue
		}
		if _, ok := from[p.CanonicalOf]; !ok {
			continue
		}
		p.CanonicalOf = target
		p.UpdatedAt = now
		st.products[id] = p
		n++
	}
	return n, nil
}

func (r *productRepo) Rename(ctx context.Context, id int64, displayName string, tokens features.TokenSet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	p, ok := st.products[id]
	if !ok {
		return notFound("product", id)
	}
	p.DisplayName = displayName
	p.UpdatedAt = r.s.now()
	st.products[id] = p
	st.index(id, tokens)
	return nil
}

func (r *productRepo) Delete(ctx context.Context, ids []int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	doomed := idSet(ids)

	// mirror the RESTRICT foreign keys of the postgres schema
	for _, l := range st.listings {
		if _, ok := doomed[l.CanonicalProductID]; ok {
			return 0, sorrelerrors.NewIntegrityViolation("product.delete", l.CanonicalProductID,
				"still referenced by listing %d", l.ID)
		}
	}
	for pid, gid := range st.memberOf {
		if _, ok := doomed[pid]; ok {
			return 0, sorrelerrors.NewIntegrityViolation("product.delete", pid, "still a member of group %d", gid)
		}
	}
	for id, p := range st.products {
		if _, self := doomed[id]; self {
			continue
		}
		if _, ok := doomed[p.CanonicalOf]; ok {
			return 0, sorrelerrors.NewIntegrityViolation("product.delete", p.CanonicalOf,
				"still the canonical target of product %d", id)
		}
	}

	var n int64
	for id := range doomed {
		if _, ok := st.products[id]; !ok {
			continue
		}
		st.unindex(id)
		delete(st.products, id)
		n++
	}
	return n, nil
}

func (r *productRepo) ReplaceTokens(ctx context.Context, id int64, tokens features.TokenSet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.state.products[id]; !ok {
		return notFound("product", id)
	}
	r.s.state.index(id, tokens)
	return nil
}
