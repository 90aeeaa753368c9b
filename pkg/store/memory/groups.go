package memory

import (
	"context"
	"sort"

	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

type groupRepo struct {
	s *Store
}

func (r *groupRepo) DeleteAll(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.state.groups = make(map[int64]models.ComparisonGroup)
	r.s.state.memberOf = make(map[int64]int64)
	return nil
}

func (r *groupRepo) Create(ctx context.Context, key models.GroupKey, productIDs []int64) (*models.ComparisonGroup, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	for _, pid := range productIDs {
		if _, ok := st.products[pid]; !ok {
			return nil, sorrelerrors.NewIntegrityViolation("group.create", pid, "product does not exist")
		}
		if gid, ok := st.memberOf[pid]; ok {
			return nil, sorrelerrors.NewIntegrityViolation("group.create", pid, "already a member of group %d", gid)
		}
	}

	members := append([]int64(nil), productIDs...)
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	group := models.ComparisonGroup{
		ID:         st.nextGroupID,
		Key:        key,
		ProductIDs: members,
		CreatedAt:  r.s.now(),
	}
	st.nextGroupID++
	st.groups[group.ID] = group
	for _, pid := range members {
		st.memberOf[pid] = group.ID
	}

	out := group
	out.ProductIDs = append([]int64(nil), members...)
	return &out, nil
}

func (r *groupRepo) List(ctx context.Context) ([]models.ComparisonGroup, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.ComparisonGroup, 0, len(r.s.state.groups))
	for _, g := range r.s.state.groups {
		g.ProductIDs = append([]int64(nil), g.ProductIDs...)
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *groupRepo) RepointMembers(ctx context.Context, fromIDs []int64, target int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	from := idSet(fromIDs)

	// the lowest group of the losers survives when target has no membership of its own
	keepGroup := int64(0)
	if _, targetIsMember := st.memberOf[target]; !targetIsMember {
		for pid, gid := range st.memberOf {
			if _, ok := from[pid]; ok && (keepGroup == 0 || gid < keepGroup) {
				keepGroup = gid
			}
		}
	}

	var moved int64
	for pid, gid := range st.memberOf {
		if _, ok := from[pid]; !ok {
			continue
		}
		delete(st.memberOf, pid)
		g := st.groups[gid]
		g.ProductIDs = removeID(g.ProductIDs, pid)
		if gid == keepGroup {
			if _, already := st.memberOf[target]; !already {
				moved++
			}
			g.ProductIDs = insertID(g.ProductIDs, target)
			st.memberOf[target] = gid
		}
		st.groups[gid] = g
	}
	return moved, nil
}

func (r *groupRepo) DeleteUndersized(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st := r.s.state
	var n int64
	for gid, g := range st.groups {
		if len(g.ProductIDs) >= 2 {
			continue
		}
		for _, pid := range g.ProductIDs {
			delete(st.memberOf, pid)
		}
		delete(st.groups, gid)
		n++
	}
	return n, nil
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func insertID(ids []int64, id int64) []int64 {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	ids = append(ids, id)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
