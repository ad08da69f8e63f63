// Package overdue derives overdue and fine state from loan due dates.
package overdue

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AarushDarne/shelftrack-webapp/pkg/db/models"
)

const day = 24 * time.Hour

// Assessment is the overdue state of one loan at a point in time.
type Assessment struct {
	LoanID      uuid.UUID       `json:"loan_id"`
	CopyID      uuid.UUID       `json:"copy_id"`
	BorrowerID  uuid.UUID       `json:"borrower_id"`
	DueAt       time.Time       `json:"due_at"`
	Overdue     bool            `json:"overdue"`
	DaysOverdue int             `json:"days_overdue"`
	Fine        decimal.Decimal `json:"fine"`
}

// Assess is overdue = now > due, days = ceil((now - due) / 24h), fine = days * rate.
func Assess(rec models.CheckoutRecord, now time.Time, rate decimal.Decimal) Assessment {
	a := Assessment{
		LoanID:     rec.ID,
		CopyID:     rec.CopyID,
		BorrowerID: rec.BorrowerID,
		DueAt:      rec.DueAt,
		Fine:       decimal.Zero,
	}
	if !now.After(rec.DueAt) {
		return a
	}
	a.Overdue = true
	a.DaysOverdue = int(math.Ceil(float64(now.Sub(rec.DueAt)) / float64(day)))
	a.Fine = rate.Mul(decimal.NewFromInt(int64(a.DaysOverdue)))
	return a
}

// Calculator binds the configured per-day rate and a clock.
type Calculator struct {
	rate decimal.Decimal
	now  func() time.Time
}

// NewCalculator builds a calculator. A nil clock uses time.Now in UTC.
func NewCalculator(rate decimal.Decimal, clock func() time.Time) *Calculator {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Calculator{rate: rate, now: clock}
}

// Rate is the fine charged per overdue day.
func (c *Calculator) Rate() decimal.Decimal {
	return c.rate
}

// Assess evaluates rec at the current time.
func (c *Calculator) Assess(rec models.CheckoutRecord) Assessment {
	return Assess(rec, c.now(), c.rate)
}

// AssessAll evaluates every record and keeps only overdue ones, in input order.
func (c *Calculator) AssessAll(records []models.CheckoutRecord) []Assessment {
	now := c.now()
	out := make([]Assessment, 0, len(records))
	for _, rec := range records {
		if a := Assess(rec, now, c.rate); a.Overdue {
			out = append(out, a)
		}
	}
	return out
}

// TotalFines sums the fines of the given assessments.
func TotalFines(assessments []Assessment) decimal.Decimal {
	total := decimal.Zero
	for _, a := range assessments {
		total = total.Add(a.Fine)
	}
	return total
}
