package repository

import (
	"context"
	"database/sql"
)

// StatsRepo runs the aggregate queries behind the admin dashboard.
type StatsRepo struct{ db *sql.DB }

func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// MonthlyCount is a count bucketed by month (YYYY-MM).
type MonthlyCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// MonthlyAmount is a cents amount bucketed by month (YYYY-MM).
type MonthlyAmount struct {
	Month        string `json:"month"`
	RevenueCents int64  `json:"revenue_cents"`
}

// NamedCount is a count grouped by a label such as a property type.
type NamedCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// NamedAmount is a cents amount grouped by a label.
type NamedAmount struct {
	Name         string `json:"name"`
	RevenueCents int64  `json:"revenue_cents"`
}

type OverallStats struct {
	Users struct {
		Total   int64 `json:"total"`
		Owners  int64 `json:"owners"`
		Tenants int64 `json:"tenants"`
	} `json:"users"`
	Properties struct {
		Total    int64 `json:"total"`
		Active   int64 `json:"active"`
		Inactive int64 `json:"inactive"`
	} `json:"properties"`
	Bookings struct {
		Total     int64 `json:"total"`
		Pending   int64 `json:"pending"`
		Confirmed int64 `json:"confirmed"`
		Completed int64 `json:"completed"`
		Cancelled int64 `json:"cancelled"`
	} `json:"bookings"`
	Revenue struct {
		TotalCents int64           `json:"total_cents"`
		Monthly    []MonthlyAmount `json:"monthly"`
	} `json:"revenue"`
}

type UserStats struct {
	RegistrationsByMonth []MonthlyCount `json:"registrations_by_month"`
	UnverifiedOwners     int64          `json:"unverified_owners"`
}

type PropertyStats struct {
	ByType             []NamedCount   `json:"by_type"`
	ByMonth            []MonthlyCount `json:"by_month"`
	AwaitingModeration int64          `json:"awaiting_moderation"`
}

type BookingStats struct {
	ByMonth       []MonthlyCount   `json:"by_month"`
	ByStatus      map[string]int64 `json:"by_status"`
	RevenueByType []NamedAmount    `json:"revenue_by_type"`
}

// Overall returns platform-wide counters and completed-booking revenue.
func (r *StatsRepo) Overall(ctx context.Context) (OverallStats, error) {
	var s OverallStats
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*),
			COALESCE(SUM(role='OWNER'),0), COALESCE(SUM(role='TENANT'),0) FROM users`).
		Scan(&s.Users.Total, &s.Users.Owners, &s.Users.Tenants); err != nil {
		return s, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*),
			COALESCE(SUM(is_active=TRUE),0), COALESCE(SUM(is_active=FALSE),0) FROM properties`).
		Scan(&s.Properties.Total, &s.Properties.Active, &s.Properties.Inactive); err != nil {
		return s, err
	}
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*),
			COALESCE(SUM(status='pending'),0), COALESCE(SUM(status='confirmed'),0),
			COALESCE(SUM(status='completed'),0), COALESCE(SUM(status='cancelled'),0),
			COALESCE(SUM(CASE WHEN status='completed' THEN total_price_cents ELSE 0 END),0)
		FROM bookings`).
		Scan(&s.Bookings.Total, &s.Bookings.Pending, &s.Bookings.Confirmed,
			&s.Bookings.Completed, &s.Bookings.Cancelled, &s.Revenue.TotalCents); err != nil {
		return s, err
	}
	monthly, err := r.monthlyAmounts(ctx, `SELECT DATE_FORMAT(created_at, '%Y-%m') AS m, COALESCE(SUM(total_price_cents),0)
		FROM bookings WHERE status='completed' AND created_at >= UTC_TIMESTAMP() - INTERVAL 12 MONTH
		GROUP BY m ORDER BY m`)
	if err != nil {
		return s, err
	}
	s.Revenue.Monthly = monthly
	return s, nil
}

// Users returns registrations per month and pending owner verifications.
func (r *StatsRepo) Users(ctx context.Context) (UserStats, error) {
	var s UserStats
	var err error
	s.RegistrationsByMonth, err = r.monthlyCounts(ctx, `SELECT DATE_FORMAT(created_at, '%Y-%m') AS m, COUNT(*)
		FROM users WHERE created_at >= UTC_TIMESTAMP() - INTERVAL 12 MONTH GROUP BY m ORDER BY m`)
	if err != nil {
		return s, err
	}
	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role='OWNER' AND is_verified=FALSE").
		Scan(&s.UnverifiedOwners)
	return s, err
}

// Properties returns counts by type and month and the moderation backlog.
func (r *StatsRepo) Properties(ctx context.Context) (PropertyStats, error) {
	var s PropertyStats
	rows, err := r.db.QueryContext(ctx, `SELECT pt.name, COUNT(p.id)
		FROM property_types pt LEFT JOIN properties p ON p.property_type_id = pt.id
		GROUP BY pt.id, pt.name ORDER BY pt.name`)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	s.ByType = make([]NamedCount, 0)
	for rows.Next() {
		var n NamedCount
		if err := rows.Scan(&n.Name, &n.Count); err != nil {
			return s, err
		}
		s.ByType = append(s.ByType, n)
	}
	if err := rows.Err(); err != nil {
		return s, err
	}
	s.ByMonth, err = r.monthlyCounts(ctx, `SELECT DATE_FORMAT(created_at, '%Y-%m') AS m, COUNT(*)
		FROM properties WHERE created_at >= UTC_TIMESTAMP() - INTERVAL 12 MONTH GROUP BY m ORDER BY m`)
	if err != nil {
		return s, err
	}
	err = r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM properties WHERE is_active=FALSE").Scan(&s.AwaitingModeration)
	return s, err
}

// Bookings returns bookings per month and status and revenue per
// property type over confirmed and completed bookings.
func (r *StatsRepo) Bookings(ctx context.Context) (BookingStats, error) {
	s := BookingStats{ByStatus: map[string]int64{"pending": 0, "confirmed": 0, "completed": 0, "cancelled": 0}}
	var err error
	s.ByMonth, err = r.monthlyCounts(ctx, `SELECT DATE_FORMAT(created_at, '%Y-%m') AS m, COUNT(*)
		FROM bookings WHERE created_at >= UTC_TIMESTAMP() - INTERVAL 12 MONTH GROUP BY m ORDER BY m`)
	if err != nil {
		return s, err
	}
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM bookings GROUP BY status")
	if err != nil {
		return s, err
	}
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return s, err
		}
		s.ByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return s, err
	}
	trows, err := r.db.QueryContext(ctx, `SELECT pt.name, COALESCE(SUM(b.total_price_cents),0)
		FROM bookings b
		JOIN properties p ON p.id = b.property_id
		JOIN property_types pt ON pt.id = p.property_type_id
		WHERE b.status IN ('confirmed','completed')
		GROUP BY pt.id, pt.name ORDER BY 2 DESC`)
	if err != nil {
		return s, err
	}
	defer trows.Close()
	s.RevenueByType = make([]NamedAmount, 0)
	for trows.Next() {
		var n NamedAmount
		if err := trows.Scan(&n.Name, &n.RevenueCents); err != nil {
			return s, err
		}
		s.RevenueByType = append(s.RevenueByType, n)
	}
	return s, trows.Err()
}

func (r *StatsRepo) monthlyCounts(ctx context.Context, q string) ([]MonthlyCount, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MonthlyCount, 0)
	for rows.Next() {
		var m MonthlyCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *StatsRepo) monthlyAmounts(ctx context.Context, q string) ([]MonthlyAmount, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MonthlyAmount, 0)
	for rows.Next() {
		var m MonthlyAmount
		if err := rows.Scan(&m.Month, &m.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
