package group

import (
	"context"
	"fmt"
	"sort"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/internal/repositories"
	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const insertGroupSQL = `
INSERT INTO comparison_groups (brand, product_type, size_value, size_unit)
VALUES ($1, $2, $3, $4)
RETURNING id, brand, product_type, size_value, size_unit, created_at`

const insertMembershipsSQL = `
INSERT INTO group_memberships (group_id, product_id)
SELECT $1, unnest($2::bigint[])`

// Repository implements store.GroupRepository
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

var _ store.GroupRepository = (*Repository)(nil)

func (r *Repository) DeleteAll(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.DeleteAll")
	defer span.End()

	conn := database.Conn(ctx, r.db)
	for _, table := range []string{membershipsTable, groupsTable} {
		if _, err := conn.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("table", table).Error("Failed to clear comparison groups")
			return tracing.RecordError(span, repositories.Wrap("group.delete_all", 0, err))
		}
	}
	return nil
}

func (r *Repository) Create(ctx context.Context, key models.GroupKey, productIDs []int64) (*models.ComparisonGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.Create")
	defer span.End()

	conn := database.Conn(ctx, r.db)
	row := FromKey(key)

	var created GroupRow
	err := conn.GetContext(ctx, &created, insertGroupSQL, row.Brand, row.ProductType, row.SizeValue, row.SizeUnit)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create comparison group")
		return nil, tracing.RecordError(span, repositories.Wrap("group.create", 0, err))
	}

	members := append([]int64(nil), productIDs...)
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	if len(members) > 0 {
		if _, err := conn.ExecContext(ctx, insertMembershipsSQL, created.ID.Int64, database.Int64Array(members)); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("group_id", created.ID.Int64).Error("Failed to insert group memberships")
			return nil, tracing.RecordError(span, repositories.Wrap("group.create", 0, err))
		}
	}
	return ToGroup(&created, members), nil
}

func (r *Repository) List(ctx context.Context) ([]models.ComparisonGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.List")
	defer span.End()

	conn := database.Conn(ctx, r.db)

	sb := groupStruct.SelectFrom(groupsTable)
	sb.OrderBy("id").Asc()
	query, args := sb.Build()

	var rows []GroupRow
	if err := conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, tracing.RecordError(span, repositories.Wrap("group.list", 0, err))
	}

	var memberships []MembershipRow
	err := conn.SelectContext(ctx, &memberships,
		"SELECT group_id, product_id FROM group_memberships ORDER BY group_id, product_id")
	if err != nil {
		return nil, tracing.RecordError(span, repositories.Wrap("group.list", 0, err))
	}

	members := make(map[int64][]int64, len(rows))
	for _, m := range memberships {
		members[m.GroupID] = append(members[m.GroupID], m.ProductID)
	}

	groups := make([]models.ComparisonGroup, len(rows))
	for i := range rows {
		groups[i] = *ToGroup(&rows[i], members[rows[i].ID.Int64])
	}
	return groups, nil
}

// RepointMembers keeps group_memberships.product_id unique: when target already
// has a membership the losers' rows are dropped, otherwise the lowest one moves
// to target and the rest are dropped.
func (r *Repository) RepointMembers(ctx context.Context, fromIDs []int64, target int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.RepointMembers")
	defer span.End()

	if len(fromIDs) == 0 {
		return 0, nil
	}
	conn := database.Conn(ctx, r.db)

	var targetIsMember bool
	err := conn.GetContext(ctx, &targetIsMember,
		"SELECT EXISTS (SELECT 1 FROM group_memberships WHERE product_id = $1)", target)
	if err != nil {
		return 0, tracing.RecordError(span, repositories.Wrap("group.repoint", target, err))
	}

	var keep []MembershipRow
	if !targetIsMember {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("group_id", "product_id").From(membershipsTable)
		sb.Where(fmt.Sprintf("product_id = ANY(%s)", sb.Var(database.Int64Array(fromIDs))))
		sb.OrderBy("group_id", "product_id").Limit(1)
		query, args := sb.Build()
		if err := conn.SelectContext(ctx, &keep, query, args...); err != nil {
			return 0, tracing.RecordError(span, repositories.Wrap("group.repoint", target, err))
		}
	}

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom(membershipsTable)
	del.Where(fmt.Sprintf("product_id = ANY(%s)", del.Var(database.Int64Array(fromIDs))))
	if len(keep) == 1 {
		del.Where(del.Not(del.And(
			del.Equal("group_id", keep[0].GroupID),
			del.Equal("product_id", keep[0].ProductID),
		)))
	}
	query, args := del.Build()
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to drop loser memberships")
		return 0, tracing.RecordError(span, repositories.Wrap("group.repoint", target, err))
	}

	if len(keep) == 0 {
		return 0, nil
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(membershipsTable)
	ub.Set(ub.Assign("product_id", target))
	ub.Where(
		ub.Equal("group_id", keep[0].GroupID),
		ub.Equal("product_id", keep[0].ProductID),
	)
	query, args = ub.Build()
	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to move membership to target")
		return 0, tracing.RecordError(span, repositories.Wrap("group.repoint", target, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, tracing.RecordError(span, repositories.Wrap("group.repoint", target, err))
	}
	return n, nil
}

const deleteUndersizedSQL = `
DELETE FROM comparison_groups g
WHERE (SELECT count(*) FROM group_memberships m WHERE m.group_id = g.id) < 2`

// DeleteUndersized drops groups with fewer than two members; their remaining
// memberships cascade.
func (r *Repository) DeleteUndersized(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "GroupRepository.DeleteUndersized")
	defer span.End()

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, deleteUndersizedSQL)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to drop undersized comparison groups")
		return 0, tracing.RecordError(span, repositories.Wrap("group.delete_undersized", 0, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, tracing.RecordError(span, repositories.Wrap("group.delete_undersized", 0, err))
	}
	return n, nil
}
