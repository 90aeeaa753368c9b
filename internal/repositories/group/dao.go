package group

import (
	"database/sql"

	"github.com/Ramsey-B/sorrel/pkg/database"
	"github.com/Ramsey-B/sorrel/pkg/models"
)

const (
	groupsTable      = "comparison_groups"
	membershipsTable = "group_memberships"
)

// GroupRow represents the database row for a comparison group
type GroupRow struct {
	ID          sql.NullInt64  `db:"id" fieldtag:"pk"`
	Brand       sql.NullString `db:"brand"`
	ProductType sql.NullString `db:"product_type"`
	SizeValue   sql.NullString `db:"size_value"`
	SizeUnit    sql.NullString `db:"size_unit"`
	CreatedAt   sql.NullTime   `db:"created_at"`
}

type MembershipRow struct {
	GroupID   int64 `db:"group_id"`
	ProductID int64 `db:"product_id"`
}

var groupStruct = database.NewStruct(new(GroupRow))

func FromKey(key models.GroupKey) *GroupRow {
	return &GroupRow{
		Brand:       sql.NullString{String: key.Brand, Valid: true},
		ProductType: sql.NullString{String: key.ProductType, Valid: true},
		SizeValue:   sql.NullString{String: key.SizeValue, Valid: true},
		SizeUnit:    sql.NullString{String: key.SizeUnit, Valid: true},
	}
}

func ToGroup(row *GroupRow, productIDs []int64) *models.ComparisonGroup {
	if productIDs == nil {
		productIDs = []int64{}
	}
	return &models.ComparisonGroup{
		ID: row.ID.Int64,
		Key: models.GroupKey{
			Brand:       row.Brand.String,
			ProductType: row.ProductType.String,
			SizeValue:   row.SizeValue.String,
			SizeUnit:    row.SizeUnit.String,
		},
		ProductIDs: productIDs,
		CreatedAt:  row.CreatedAt.Time,
	}
}
