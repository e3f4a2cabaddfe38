package financial

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the read/write contract spec.md §4 describes: "the core
// only reads via a repository interface that offers get_by_code, save_*,
// and get_or_create_financial_report." The FinancialRetriever agent calls
// only GetByCode; the Save* and GetOrCreateReport methods exist for the
// (external) PDF-ingestion collaborator this package does not implement.
type Repository interface {
	// GetByCode returns summary financial rows for companyCode, optionally
	// narrowed to itemCodes and an inclusive [startYearMonth, endYearMonth]
	// range (either bound may be empty to leave it open), paginated by
	// limit/offset. It mirrors data_service_db.py's
	// get_summary_financial_data(company_code, item_codes,
	// start_year_month, end_year_month, limit, offset) -> (data, total).
	GetByCode(ctx context.Context, companyCode string, itemCodes []string, startYearMonth, endYearMonth string, limit, offset int) ([]Row, int, error)

	GetOrCreateFinancialReport(ctx context.Context, companyCode, reportType string, reportYear, reportQuarter int, filePath string) (Report, error)

	SaveBalanceSheetData(ctx context.Context, row Row) error
	SaveIncomeStatementData(ctx context.Context, row Row) error
	SaveCashFlowData(ctx context.Context, row Row) error
	SaveEquityChangeData(ctx context.Context, row Row) error
}

// PgxRepository implements Repository against Postgres via a pgx/v5 pool,
// grounded on internal/tokenusage.PgxWriter's pool-construction idiom.
type PgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) *PgxRepository {
	return &PgxRepository{pool: pool}
}

const summaryFinancialDataQuery = `
SELECT s.report_id, c.code, c.name, i.code, i.name, s.year_month,
       s.value, s.display_unit, s.cumulative_value, s.period_value, s.is_cumulative
FROM summary_financial_data s
JOIN companies c ON c.id = s.company_id
JOIN financial_items i ON i.id = s.item_id
WHERE c.code = $1
  AND ($2::text[] IS NULL OR i.code = ANY($2))
  AND ($3::text = '' OR s.year_month >= $3)
  AND ($4::text = '' OR s.year_month <= $4)
ORDER BY s.year_month DESC
LIMIT $5 OFFSET $6
`

const summaryFinancialDataCountQuery = `
SELECT count(*)
FROM summary_financial_data s
JOIN companies c ON c.id = s.company_id
JOIN financial_items i ON i.id = s.item_id
WHERE c.code = $1
  AND ($2::text[] IS NULL OR i.code = ANY($2))
  AND ($3::text = '' OR s.year_month >= $3)
  AND ($4::text = '' OR s.year_month <= $4)
`

func (r *PgxRepository) GetByCode(ctx context.Context, companyCode string, itemCodes []string, startYearMonth, endYearMonth string, limit, offset int) ([]Row, int, error) {
	var itemCodesArg any
	if len(itemCodes) > 0 {
		itemCodesArg = itemCodes
	}

	var total int
	if err := r.pool.QueryRow(ctx, summaryFinancialDataCountQuery, companyCode, itemCodesArg, startYearMonth, endYearMonth).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("financial: count rows for %s: %w", companyCode, err)
	}

	rows, err := r.pool.Query(ctx, summaryFinancialDataQuery, companyCode, itemCodesArg, startYearMonth, endYearMonth, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("financial: query rows for %s: %w", companyCode, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		row.Statement = StatementSummary
		if err := rows.Scan(&row.ReportID, &row.CompanyCode, &row.CompanyName, &row.ItemCode, &row.ItemName,
			&row.YearMonth, &row.Value, &row.DisplayUnit, &row.CumulativeValue, &row.PeriodValue, &row.IsCumulative); err != nil {
			return nil, 0, fmt.Errorf("financial: scan row for %s: %w", companyCode, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("financial: iterate rows for %s: %w", companyCode, err)
	}
	return out, total, nil
}

func (r *PgxRepository) GetOrCreateFinancialReport(ctx context.Context, companyCode, reportType string, reportYear, reportQuarter int, filePath string) (Report, error) {
	const upsert = `
INSERT INTO financial_reports (company_id, report_type, report_year, report_quarter, file_path)
SELECT c.id, $2, $3, $4, $5 FROM companies c WHERE c.code = $1
ON CONFLICT (company_id, report_type, report_year, report_quarter) DO UPDATE SET file_path = excluded.file_path
RETURNING id, company_id, report_type, report_year, report_quarter, file_path, created_at
`
	var rep Report
	err := r.pool.QueryRow(ctx, upsert, companyCode, reportType, reportYear, reportQuarter, filePath).Scan(
		&rep.ID, &rep.CompanyID, &rep.ReportType, &rep.ReportYear, &rep.ReportQuarter, &rep.FilePath, &rep.CreatedAt)
	if err != nil {
		return Report{}, fmt.Errorf("financial: get or create report for %s: %w", companyCode, err)
	}
	rep.CompanyCode = companyCode
	return rep, nil
}

func (r *PgxRepository) SaveBalanceSheetData(ctx context.Context, row Row) error {
	return r.saveStatementRow(ctx, "balance_sheet_data", row)
}

func (r *PgxRepository) SaveIncomeStatementData(ctx context.Context, row Row) error {
	return r.saveStatementRow(ctx, "income_statement_data", row)
}

func (r *PgxRepository) SaveCashFlowData(ctx context.Context, row Row) error {
	return r.saveStatementRow(ctx, "cash_flow_data", row)
}

func (r *PgxRepository) SaveEquityChangeData(ctx context.Context, row Row) error {
	return r.saveStatementRow(ctx, "equity_change_data", row)
}

// saveStatementRow upserts one row into one of the four per-statement
// tables, chosen by table; all four share the same column shape
// (report_id, company's item, year_month, value, display_unit,
// cumulative_value, period_value, is_cumulative), mirroring
// data_service_db.py's per-category branch into
// save_balance_sheet_data/save_income_statement_data/save_cash_flow_data/
// save_equity_change_data.
func (r *PgxRepository) saveStatementRow(ctx context.Context, table string, row Row) error {
	query := fmt.Sprintf(`
INSERT INTO %s (report_id, company_code, item_code, year_month, value, display_unit, cumulative_value, period_value, is_cumulative)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (report_id, item_code, year_month) DO UPDATE SET
  value = excluded.value,
  display_unit = excluded.display_unit,
  cumulative_value = excluded.cumulative_value,
  period_value = excluded.period_value,
  is_cumulative = excluded.is_cumulative
`, pgx.Identifier{table}.Sanitize())
	_, err := r.pool.Exec(ctx, query, row.ReportID, row.CompanyCode, row.ItemCode, row.YearMonth,
		row.Value, row.DisplayUnit, row.CumulativeValue, row.PeriodValue, row.IsCumulative)
	if err != nil {
		return fmt.Errorf("financial: save %s row: %w", table, err)
	}
	return nil
}
