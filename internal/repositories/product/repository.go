package product

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/sorrel/internal/repositories"
	"github.com/Ramsey-B/sorrel/pkg/database"
	sorrelerrors "github.com/Ramsey-B/sorrel/pkg/errors"
	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/store"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

const productColumns = "id, display_name, brand, attributes, canonical_of, created_at, updated_at"

// The id is drawn first so the new row can point canonical_of at itself in one statement.
const insertProductSQL = `
WITH next AS (SELECT nextval(pg_get_serial_sequence('canonical_products', 'id')) AS id)
INSERT INTO canonical_products (id, display_name, brand, attributes, canonical_of, created_at, updated_at)
SELECT next.id, $1, $2, $3, next.id, $4, $4 FROM next
RETURNING ` + productColumns

const insertTokensSQL = `
INSERT INTO canonical_product_tokens (product_id, token)
SELECT $1, unnest($2::text[])
ON CONFLICT DO NOTHING`

// Repository implements store.ProductRepository
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

var _ store.ProductRepository = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, p store.NewProduct, tokens features.TokenSet) (*models.CanonicalProduct, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Create")
	defer span.End()

	attrs := p.Attributes
	if attrs == nil {
		attrs = models.Attributes{}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"display_name": p.DisplayName,
		"tokens":       tokens.Len(),
	}).Debug("Creating canonical product")

	var row ProductRow
	err := database.Conn(ctx, r.db).GetContext(ctx, &row, insertProductSQL,
		p.DisplayName, nullString(p.Brand), database.JSONB[models.Attributes]{Data: attrs}, Now())
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create canonical product")
		return nil, tracing.RecordError(span, repositories.Wrap("product.create", 0, err))
	}

	if err := r.insertTokens(ctx, row.ID.Int64, tokens); err != nil {
		return nil, tracing.RecordError(span, err)
	}
	return ToProduct(&row), nil
}

func (r *Repository) insertTokens(ctx context.Context, id int64, tokens features.TokenSet) error {
	if tokens.Len() == 0 {
		return nil
	}
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, insertTokensSQL, id, database.StringArray(tokens.Sorted()))
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("product_id", id).Error("Failed to index product tokens")
		return repositories.Wrap("product.index", id, err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*models.CanonicalProduct, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Get")
	defer span.End()

	sb := productStruct.SelectFrom(productsTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row ProductRow
	if err := database.Conn(ctx, r.db).GetContext(ctx, &row, query, args...); err != nil {
		return nil, tracing.RecordError(span, repositories.NotFound("product.get", "product", id, err))
	}
	return ToProduct(&row), nil
}

func (r *Repository) list(ctx context.Context, op string, where ...func(sb *sqlbuilder.SelectBuilder) string) ([]models.CanonicalProduct, error) {
	sb := productStruct.SelectFrom(productsTable)
	for _, w := range where {
		sb.Where(w(sb))
	}
	sb.OrderBy("id").Asc()
	query, args := sb.Build()

	var rows []ProductRow
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("Failed to run %s", op)
		return nil, repositories.Wrap(op, 0, err)
	}
	return ToProducts(rows), nil
}

func isCanonical(*sqlbuilder.SelectBuilder) string {
	return "canonical_of = id"
}

func (r *Repository) ListCanonical(ctx context.Context) ([]models.CanonicalProduct, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.ListCanonical")
	defer span.End()

	products, err := r.list(ctx, "product.list_canonical", isCanonical)
	return products, tracing.RecordError(span, err)
}

func (r *Repository) ListAll(ctx context.Context) ([]models.CanonicalProduct, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.ListAll")
	defer span.End()

	products, err := r.list(ctx, "product.list_all")
	return products, tracing.RecordError(span, err)
}

func (r *Repository) FindCandidates(ctx context.Context, tokens features.TokenSet) ([]models.CanonicalProduct, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.FindCandidates")
	defer span.End()

	if tokens.Len() == 0 {
		return []models.CanonicalProduct{}, nil
	}

	products, err := r.list(ctx, "product.find_candidates", isCanonical, func(sb *sqlbuilder.SelectBuilder) string {
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s t WHERE t.product_id = %s.id AND t.token = ANY(%s))",
			tokensTable, productsTable, sb.Var(database.StringArray(tokens.Sorted())))
	})
	return products, tracing.RecordError(span, err)
}

func (r *Repository) FindByDisplayNames(ctx context.Context, names []string) ([]models.CanonicalProduct, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.FindByDisplayNames")
	defer span.End()

	if len(names) == 0 {
		return []models.CanonicalProduct{}, nil
	}

	products, err := r.list(ctx, "product.find_by_display_names", func(sb *sqlbuilder.SelectBuilder) string {
		return fmt.Sprintf("display_name = ANY(%s)", sb.Var(database.StringArray(names)))
	})
	return products, tracing.RecordError(span, err)
}

func (r *Repository) FindBrandNamed(ctx context.Context) ([]models.CanonicalProduct, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.FindBrandNamed")
	defer span.End()

	products, err := r.list(ctx, "product.find_brand_named", func(sb *sqlbuilder.SelectBuilder) string {
		return sb.And(sb.IsNotNull("brand"), "brand = display_name")
	})
	return products, tracing.RecordError(span, err)
}

// exists reports a missing target as an IntegrityViolation instead of waiting for the deferred FK at commit.
func (r *Repository) exists(ctx context.Context, op string, id int64) error {
	var found bool
	err := database.Conn(ctx, r.db).GetContext(ctx, &found,
		"SELECT EXISTS (SELECT 1 FROM canonical_products WHERE id = $1)", id)
	if err != nil {
		return repositories.Wrap(op, id, err)
	}
	if !found {
		return sorrelerrors.NewIntegrityViolation(op, id, "target product does not exist")
	}
	return nil
}

func (r *Repository) repoint(ctx context.Context, op string, target int64, where func(ub *sqlbuilder.UpdateBuilder) string) (int64, error) {
	if err := r.exists(ctx, op, target); err != nil {
		return 0, err
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(productsTable)
	ub.Set(
		ub.Assign("canonical_of", target),
		ub.Assign("updated_at", Now()),
	)
	ub.Where(where(ub))
	query, args := ub.Build()

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("target", target).Errorf("Failed to run %s", op)
		return 0, repositories.Wrap(op, target, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, repositories.Wrap(op, target, err)
	}
	return n, nil
}

func (r *Repository) Consolidate(ctx context.Context, memberIDs []int64, target int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Consolidate")
	defer span.End()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"members": memberIDs,
		"target":  target,
	}).Debug("Consolidating products")

	members := append(append([]int64(nil), memberIDs...), target)
	n, err := r.repoint(ctx, "product.consolidate", target, func(ub *sqlbuilder.UpdateBuilder) string {
		return ub.Or(
			fmt.Sprintf("id = ANY(%s)", ub.Var(database.Int64Array(members))),
			fmt.Sprintf("canonical_of = ANY(%s)", ub.Var(database.Int64Array(members))),
		)
	})
	return n, tracing.RecordError(span, err)
}

func (r *Repository) Redirect(ctx context.Context, fromIDs []int64, target int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Redirect")
	defer span.End()

	if len(fromIDs) == 0 {
		return 0, nil
	}

	n, err := r.repoint(ctx, "product.redirect", target, func(ub *sqlbuilder.UpdateBuilder) string {
		return ub.And(
			fmt.Sprintf("canonical_of = ANY(%s)", ub.Var(database.Int64Array(fromIDs))),
			fmt.Sprintf("id <> ALL(%s)", ub.Var(database.Int64Array(fromIDs))),
		)
	})
	return n, tracing.RecordError(span, err)
}

func (r *Repository) Rename(ctx context.Context, id int64, displayName string, tokens features.TokenSet) error {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Rename")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(productsTable)
	ub.Set(
		ub.Assign("display_name", displayName),
		ub.Assign("updated_at", Now()),
	)
	ub.Where(ub.Equal("id", id))
	query, args := ub.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"product_id":   id,
		"display_name": displayName,
	}).Debug("Renaming product")

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to rename product")
		return tracing.RecordError(span, repositories.Wrap("product.rename", id, err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tracing.RecordError(span, fmt.Errorf("product %d: %w", id, store.ErrNotFound))
	}
	return tracing.RecordError(span, r.replaceTokens(ctx, id, tokens))
}

func (r *Repository) Delete(ctx context.Context, ids []int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.Delete")
	defer span.End()

	if len(ids) == 0 {
		return 0, nil
	}

	r.logger.WithContext(ctx).WithField("ids", ids).Debug("Deleting products")

	conn := database.Conn(ctx, r.db)
	// pointers inside the doomed set would block its own delete under RESTRICT
	_, err := conn.ExecContext(ctx,
		"UPDATE canonical_products SET canonical_of = NULL WHERE id = ANY($1) AND canonical_of = ANY($1)",
		database.Int64Array(ids))
	if err != nil {
		return 0, tracing.RecordError(span, repositories.Wrap("product.delete", 0, err))
	}

	del := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	del.DeleteFrom(productsTable)
	del.Where(fmt.Sprintf("id = ANY(%s)", del.Var(database.Int64Array(ids))))
	query, args := del.Build()

	res, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete products")
		return 0, tracing.RecordError(span, repositories.Wrap("product.delete", 0, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, tracing.RecordError(span, repositories.Wrap("product.delete", 0, err))
	}
	return n, nil
}

func (r *Repository) ReplaceTokens(ctx context.Context, id int64, tokens features.TokenSet) error {
	ctx, span := tracing.StartSpan(ctx, "ProductRepository.ReplaceTokens")
	defer span.End()

	if err := r.exists(ctx, "product.reindex", id); err != nil {
		if sorrelerrors.IsIntegrityViolation(err) {
			err = fmt.Errorf("product %d: %w", id, store.ErrNotFound)
		}
		return tracing.RecordError(span, err)
	}
	return tracing.RecordError(span, r.replaceTokens(ctx, id, tokens))
}

func (r *Repository) replaceTokens(ctx context.Context, id int64, tokens features.TokenSet) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, "DELETE FROM canonical_product_tokens WHERE product_id = $1", id)
	if err != nil {
		return repositories.Wrap("product.index", id, err)
	}
	return r.insertTokens(ctx, id, tokens)
}
