package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	order "restaurant-backoffice/internal/domains/order/model"
	"restaurant-backoffice/internal/domains/promotion/model"
	"restaurant-backoffice/internal/shared/utils"
	"restaurant-backoffice/pkg/cache"
	"restaurant-backoffice/pkg/database"
)

const (
	promotionCacheTTL = 10 * time.Minute

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const promotionColumns = `
	p.id, p.label, p.name,
	p.usage_limit, p.total_redemption_limit, p.voucher_limit_per_customer,
	p.status, p.available_on, p.start_date, p.end_date, p.custom_day_time,
	p.channels, p.promo_kind,
	p.discount_type, p.discount_amount, p.minimum_spend,
	p.minimum_quantity, p.every_quantity, p.get_number,
	p.scope1_kind, p.scope1_ids, p.scope2_kind, p.scope2_ids,
	p.version, p.created_at, p.updated_at,
	ARRAY(SELECT c.code FROM promotion_codes c WHERE c.promotion_id = p.id ORDER BY c.position) AS codes
`

type postgresRepository struct {
	pool  database.DBTX
	cache cache.Cache
}

// NewPostgresRepository creates the pgx repository with a cache-aside
// layer on single promotion lookups.
func NewPostgresRepository(pool *pgxpool.Pool, c cache.Cache) PromotionRepository {
	return newRepository(pool, c)
}

func newRepository(db database.DBTX, c cache.Cache) *postgresRepository {
	return &postgresRepository{pool: db, cache: c}
}

func (r *postgresRepository) db(tx pgx.Tx) database.DBTX {
	if tx != nil {
		return tx
	}
	return r.pool
}

func promotionKey(id uuid.UUID) string {
	return "promotion:" + id.String()
}

func promotionCodeKey(code string) string {
	return "promotion:code:" + code
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

// FindByID loads a promotion, cache first
func (r *postgresRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Promotion, error) {
	// STEP 1: cache
	var cached model.Promotion
	if found, err := r.cache.Get(ctx, promotionKey(id), &cached); err == nil && found {
		return &cached, nil
	}

	// STEP 2: database
	query := `SELECT ` + promotionColumns + ` FROM promotions p WHERE p.id = $1`
	p, err := scanPromotion(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find promotion by id: %w", err)
	}

	// STEP 3: fill cache; a cache failure must not fail the read
	_ = r.cache.Set(ctx, promotionKey(id), p, promotionCacheTTL)

	return p, nil
}

// FindByCode resolves a redemption code. The cache maps code → id; a stale
// mapping (code moved to another promotion) falls through to the database.
func (r *postgresRepository) FindByCode(ctx context.Context, code string) (*model.Promotion, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var id uuid.UUID
	if found, err := r.cache.Get(ctx, promotionCodeKey(code), &id); err == nil && found {
		if p, err := r.FindByID(ctx, id); err == nil && p.HasCode(code) {
			return p, nil
		}
		_ = r.cache.Delete(ctx, promotionCodeKey(code))
	}

	err := r.pool.QueryRow(ctx, `SELECT promotion_id FROM promotion_codes WHERE code = $1`, code).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find promotion by code: %w", err)
	}

	_ = r.cache.Set(ctx, promotionCodeKey(code), id, promotionCacheTTL)
	return r.FindByID(ctx, id)
}

// List returns one page of the admin list and the total row count
func (r *postgresRepository) List(
	ctx context.Context,
	filter *model.ListPromotionsFilter,
	today model.Date,
) ([]*model.PromotionListItem, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch filter.Status {
	case "active":
		conditions = append(conditions, "p.status = 'active' AND p.end_date >= "+arg(today.Time()))
	case "inactive":
		conditions = append(conditions, "p.status = 'inactive'")
	case "expired":
		conditions = append(conditions, "p.end_date < "+arg(today.Time()))
	}

	if filter.Search != "" {
		pattern := arg("%" + filter.Search + "%")
		conditions = append(conditions, fmt.Sprintf(
			"(p.name ILIKE %s OR EXISTS (SELECT 1 FROM promotion_codes c WHERE c.promotion_id = p.id AND c.code ILIKE %s))",
			pattern, pattern,
		))
	}

	if filter.Channel != "" {
		conditions = append(conditions, arg(filter.Channel)+" = ANY(p.channels)")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + utils.JoinWithAnd(conditions)
	}

	query := fmt.Sprintf(`
		SELECT
			p.id, p.name,
			ARRAY(SELECT c.code FROM promotion_codes c WHERE c.promotion_id = p.id ORDER BY c.position),
			p.promo_kind, p.status, p.channels, p.start_date, p.end_date,
			(SELECT COUNT(*) FROM promotion_redemptions pr WHERE pr.promotion_id = p.id),
			p.updated_at,
			COUNT(*) OVER() AS total
		FROM promotions p
		%s
		ORDER BY p.updated_at DESC
		LIMIT %s OFFSET %s
	`, where, arg(filter.Limit), arg(filter.Offset()))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	items := make([]*model.PromotionListItem, 0, filter.Limit)
	total := 0
	for rows.Next() {
		var (
			it         model.PromotionListItem
			channels   []string
			start, end time.Time
		)
		if err := rows.Scan(
			&it.ID, &it.Name, &it.Codes, &it.Kind, &it.Status, &channels,
			&start, &end, &it.RedemptionCount, &it.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan promotion row: %w", err)
		}
		it.Channels = toChannels(channels)
		it.StoreStartDate = model.DateOf(start)
		it.StoreEndDate = model.DateOf(end)
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate promotions: %w", err)
	}

	return items, total, nil
}

// CodesInUse returns which of codes already belong to another promotion
func (r *postgresRepository) CodesInUse(ctx context.Context, codes []string, excludeID *uuid.UUID) ([]string, error) {
	query := `SELECT code FROM promotion_codes WHERE code = ANY($1) AND ($2::uuid IS NULL OR promotion_id <> $2)`

	rows, err := r.pool.Query(ctx, query, codes, excludeID)
	if err != nil {
		return nil, fmt.Errorf("check promotion codes: %w", err)
	}
	defer rows.Close()

	var taken []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan promotion code: %w", err)
		}
		taken = append(taken, c)
	}
	return taken, rows.Err()
}

// -------------------------------------------------------------------
// WRITE OPERATIONS
// -------------------------------------------------------------------

// Create inserts the promotion and its codes
func (r *postgresRepository) Create(ctx context.Context, tx pgx.Tx, p *model.Promotion) error {
	days, err := json.Marshal(p.Availability.Days)
	if err != nil {
		return fmt.Errorf("encode custom day time: %w", err)
	}

	query := `
		INSERT INTO promotions (
			id, label, name,
			usage_limit, total_redemption_limit, voucher_limit_per_customer,
			status, available_on, start_date, end_date, custom_day_time,
			channels, promo_kind,
			discount_type, discount_amount, minimum_spend,
			minimum_quantity, every_quantity, get_number,
			scope1_kind, scope1_ids, scope2_kind, scope2_ids
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
		)
		RETURNING version, created_at, updated_at
	`

	db := r.db(tx)
	err = db.QueryRow(ctx, query,
		p.ID, p.Label, p.Name,
		string(p.UsageLimit), p.TotalRedemptionLimit, p.VoucherLimitPerCustomer,
		string(p.Status), p.AvailableOn, p.Availability.StartDate.Time(), p.Availability.EndDate.Time(), days,
		fromChannels(p.Channels), string(p.Kind),
		string(p.Rule.Type), p.Rule.Amount, p.Rule.MinimumSpend,
		p.Rule.MinimumQuantity, p.Rule.EveryQuantity, p.Rule.GetNumber,
		string(p.Scope1.Kind), nonNil(p.Scope1.IDs), string(p.Scope2.Kind), nonNil(p.Scope2.IDs),
	).Scan(&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert promotion: %w", err)
	}

	return r.insertCodes(ctx, db, p.ID, p.Codes)
}

// FindForUpdate reads a promotion from the database, bypassing the cache,
// and locks its row for the rest of tx.
func (r *postgresRepository) FindForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions p WHERE p.id = $1 FOR UPDATE OF p`
	p, err := scanPromotion(r.db(tx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find promotion for update: %w", err)
	}
	return p, nil
}

// Update writes every column under optimistic locking on version
func (r *postgresRepository) Update(ctx context.Context, tx pgx.Tx, p *model.Promotion) error {
	days, err := json.Marshal(p.Availability.Days)
	if err != nil {
		return fmt.Errorf("encode custom day time: %w", err)
	}

	query := `
		UPDATE promotions SET
			label = $3, name = $4,
			usage_limit = $5, total_redemption_limit = $6, voucher_limit_per_customer = $7,
			status = $8, available_on = $9, start_date = $10, end_date = $11, custom_day_time = $12,
			channels = $13, promo_kind = $14,
			discount_type = $15, discount_amount = $16, minimum_spend = $17,
			minimum_quantity = $18, every_quantity = $19, get_number = $20,
			scope1_kind = $21, scope1_ids = $22, scope2_kind = $23, scope2_ids = $24,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`

	db := r.db(tx)
	err = db.QueryRow(ctx, query,
		p.ID, p.Version,
		p.Label, p.Name,
		string(p.UsageLimit), p.TotalRedemptionLimit, p.VoucherLimitPerCustomer,
		string(p.Status), p.AvailableOn, p.Availability.StartDate.Time(), p.Availability.EndDate.Time(), days,
		fromChannels(p.Channels), string(p.Kind),
		string(p.Rule.Type), p.Rule.Amount, p.Rule.MinimumSpend,
		p.Rule.MinimumQuantity, p.Rule.EveryQuantity, p.Rule.GetNumber,
		string(p.Scope1.Kind), nonNil(p.Scope1.IDs), string(p.Scope2.Kind), nonNil(p.Scope2.IDs),
	).Scan(&p.Version, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrUpdateConflict
		}
		return fmt.Errorf("update promotion: %w", err)
	}

	if _, err := db.Exec(ctx, `DELETE FROM promotion_codes WHERE promotion_id = $1`, p.ID); err != nil {
		return fmt.Errorf("clear promotion codes: %w", err)
	}
	if err := r.insertCodes(ctx, db, p.ID, p.Codes); err != nil {
		return err
	}

	// Inside a transaction the caller invalidates after commit
	if tx == nil {
		r.Invalidate(ctx, p.ID)
	}
	return nil
}

func (r *postgresRepository) insertCodes(ctx context.Context, db database.DBTX, id uuid.UUID, codes []string) error {
	for i, code := range codes {
		_, err := db.Exec(ctx,
			`INSERT INTO promotion_codes (code, promotion_id, position) VALUES ($1, $2, $3)`,
			code, id, i,
		)
		if err != nil {
			if isPgError(err, pgUniqueViolation) {
				return model.ErrDuplicateCode
			}
			return fmt.Errorf("insert promotion code: %w", err)
		}
	}
	return nil
}

// UpdateStatus flips the admin switch
func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PromotionStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE promotions
		SET status = $2, version = version + 1, updated_at = NOW()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("update promotion status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPromotionNotFound
	}

	r.Invalidate(ctx, id)
	return nil
}

// Delete removes a promotion that has never been redeemed
func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return model.ErrCannotDeleteUsed
		}
		return fmt.Errorf("delete promotion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPromotionNotFound
	}

	r.Invalidate(ctx, id)
	return nil
}

// FindActive lists the active promotions offered on channel whose date
// range covers today. Day and hour windows are left to the engine.
func (r *postgresRepository) FindActive(ctx context.Context, channel order.Channel, today model.Date) ([]*model.Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions p
		WHERE p.status = 'active'
		  AND $1 = ANY(p.channels)
		  AND p.start_date <= $2 AND p.end_date >= $2
		ORDER BY p.created_at`

	rows, err := r.pool.Query(ctx, query, string(channel), today.Time())
	if err != nil {
		return nil, fmt.Errorf("find active promotions: %w", err)
	}

	promos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Promotion, error) {
		return scanPromotion(row)
	})
	if err != nil {
		return nil, fmt.Errorf("collect active promotions: %w", err)
	}
	return promos, nil
}

// DeactivateExpired switches off active promotions whose end date is
// before today and returns their ids.
func (r *postgresRepository) DeactivateExpired(ctx context.Context, today model.Date) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE promotions
		SET status = 'inactive', version = version + 1, updated_at = NOW()
		WHERE status = 'active' AND end_date < $1
		RETURNING id
	`, today.Time())
	if err != nil {
		return nil, fmt.Errorf("deactivate expired promotions: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect expired promotions: %w", err)
	}

	for _, id := range ids {
		r.Invalidate(ctx, id)
	}
	return ids, nil
}

// -------------------------------------------------------------------
// REDEMPTIONS
// -------------------------------------------------------------------

// LockForRedemption takes a row lock on the promotion for the rest of tx
// so concurrent checkouts count redemptions one at a time.
func (r *postgresRepository) LockForRedemption(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var locked uuid.UUID
	err := r.db(tx).QueryRow(ctx, `SELECT id FROM promotions WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrPromotionNotFound
		}
		return fmt.Errorf("lock promotion: %w", err)
	}
	return nil
}

// CountRedemptions returns the global count and, when customerID is set,
// the customer's own count.
func (r *postgresRepository) CountRedemptions(
	ctx context.Context,
	tx pgx.Tx,
	promoID uuid.UUID,
	customerID *uuid.UUID,
) (model.RedemptionCounts, error) {
	var counts model.RedemptionCounts
	err := r.db(tx).QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE customer_id = $2)
		FROM promotion_redemptions
		WHERE promotion_id = $1
	`, promoID, customerID).Scan(&counts.Total, &counts.ForCustomer)
	if err != nil {
		return counts, fmt.Errorf("count redemptions: %w", err)
	}
	return counts, nil
}

// CreateRedemption inserts one redemption row
func (r *postgresRepository) CreateRedemption(ctx context.Context, tx pgx.Tx, red *model.PromotionRedemption) error {
	err := r.db(tx).QueryRow(ctx, `
		INSERT INTO promotion_redemptions (id, promotion_id, customer_id, order_id, code, discount_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING redeemed_at
	`, red.ID, red.PromotionID, red.CustomerID, red.OrderID, red.Code, red.DiscountAmount).Scan(&red.RedeemedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return model.ErrAlreadyRedeemed
		}
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

func scanPromotion(row pgx.Row) (*model.Promotion, error) {
	var (
		p          model.Promotion
		start, end time.Time
		days       []byte
		channels   []string
		scope1IDs  []string
		scope2IDs  []string
	)

	err := row.Scan(
		&p.ID, &p.Label, &p.Name,
		&p.UsageLimit, &p.TotalRedemptionLimit, &p.VoucherLimitPerCustomer,
		&p.Status, &p.AvailableOn, &start, &end, &days,
		&channels, &p.Kind,
		&p.Rule.Type, &p.Rule.Amount, &p.Rule.MinimumSpend,
		&p.Rule.MinimumQuantity, &p.Rule.EveryQuantity, &p.Rule.GetNumber,
		&p.Scope1.Kind, &scope1IDs, &p.Scope2.Kind, &scope2IDs,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
		&p.Codes,
	)
	if err != nil {
		return nil, err
	}

	p.Availability.StartDate = model.DateOf(start)
	p.Availability.EndDate = model.DateOf(end)
	if len(days) > 0 {
		if err := json.Unmarshal(days, &p.Availability.Days); err != nil {
			return nil, fmt.Errorf("decode custom day time: %w", err)
		}
	}
	p.Channels = toChannels(channels)
	if len(scope1IDs) > 0 {
		p.Scope1.IDs = scope1IDs
	}
	if len(scope2IDs) > 0 {
		p.Scope2.IDs = scope2IDs
	}

	return &p, nil
}

// Invalidate drops the cached definition of a promotion
func (r *postgresRepository) Invalidate(ctx context.Context, id uuid.UUID) {
	_ = r.cache.Delete(ctx, promotionKey(id))
}

func toChannels(raw []string) []order.Channel {
	out := make([]order.Channel, 0, len(raw))
	for _, c := range raw {
		out = append(out, order.Channel(c))
	}
	return out
}

func fromChannels(channels []order.Channel) []string {
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		out = append(out, string(c))
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
