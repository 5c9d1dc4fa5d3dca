package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitebooks/backend/models"
)

var (
	deptA = models.Department{ID: "dept-a", Name: "Smith St", Status: models.DepartmentActive}
	deptB = models.Department{ID: "dept-b", Name: "Jones Rd", Status: models.DepartmentActive}

	stageFraming   = models.Stage{ID: "st-framing", DepartmentID: "dept-a", Name: "Framing", SortOrder: 2}
	stageFooting   = models.Stage{ID: "st-footing", DepartmentID: "dept-a", Name: "Footings", SortOrder: 1}
	stageOverheads = models.Stage{ID: "st-overheads", DepartmentID: "dept-a", Name: "Overheads", SortOrder: 9}
)

func entry(dept, stage, invoiceID, typ, status, amount string) models.LedgerEntry {
	return models.LedgerEntry{
		DepartmentID: dept,
		StageID:      stage,
		InvoiceID:    invoiceID,
		InvoiceType:  typ,
		Status:       status,
		Amount:       decimal.RequireFromString(amount),
		LineCount:    1,
	}
}

func baseInput(filter models.StatusFilter) AggregateInput {
	return AggregateInput{
		Filter:             filter,
		Departments:        []models.Department{deptA},
		Stages:             []models.Stage{stageFraming, stageFooting, stageOverheads},
		OverheadsStageName: "Overheads",
	}
}

func TestAggregate_SingleReceivable(t *testing.T) {
	got := Aggregate(baseInput(models.FilterPaidAuthorized), []models.LedgerEntry{
		entry("dept-a", "", "inv-1", models.InvoiceTypeReceivable, models.InvoiceStatusPaid, "15000"),
	})

	require.Len(t, got.Departments, 1)
	d := got.Departments[0]
	assert.Equal(t, "15000.00", d.Income.StringFixed(2))
	assert.True(t, d.Expenses.IsZero())
	assert.Equal(t, "15000.00", d.NetProfit.StringFixed(2))
	assert.Equal(t, 1, d.ReceivableInvoiceCount)
	assert.Equal(t, 0, d.PayableInvoiceCount)
	assert.Empty(t, d.Stages)
	assert.True(t, got.Totals.Income.Equal(dec("15000")))
}

func TestAggregate_PaidFilterExcludesAuthorised(t *testing.T) {
	entries := []models.LedgerEntry{
		entry("dept-a", "", "inv-1", models.InvoiceTypeReceivable, models.InvoiceStatusPaid, "1000"),
		entry("dept-a", "", "inv-2", models.InvoiceTypeReceivable, models.InvoiceStatusAuthorised, "500"),
		entry("dept-a", "st-framing", "inv-3", models.InvoiceTypePayable, models.InvoiceStatusAuthorised, "200"),
		entry("dept-a", "", "inv-4", models.InvoiceTypeReceivable, models.InvoiceStatusDraft, "999"),
	}

	paid := Aggregate(baseInput(models.FilterPaid), entries).Departments[0]
	assert.True(t, paid.Income.Equal(dec("1000")))
	assert.True(t, paid.Expenses.IsZero())
	assert.Equal(t, 1, paid.ReceivableInvoiceCount)
	assert.Equal(t, 0, paid.PayableInvoiceCount)
	assert.Empty(t, paid.Stages)

	both := Aggregate(baseInput(models.FilterPaidAuthorized), entries).Departments[0]
	assert.True(t, both.Income.Equal(dec("1500")))
	assert.True(t, both.Expenses.Equal(dec("200")))
	assert.True(t, both.NetProfit.Equal(dec("1300")))
}

func TestAggregate_StagesOverheadsAndUnassigned(t *testing.T) {
	in := baseInput(models.FilterPaidAuthorized)
	in.Budgets = map[StageKey]decimal.Decimal{
		{DepartmentID: "dept-a", StageID: "st-framing"}: dec("1000"),
		{DepartmentID: "dept-a", StageID: "st-footing"}: dec("250"),
	}

	march := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	e1 := entry("dept-a", "st-framing", "bill-1", models.InvoiceTypePayable, models.InvoiceStatusPaid, "100.00")
	e1.ActivityDate = &march
	e2 := entry("dept-a", "st-framing", "bill-2", models.InvoiceTypePayable, models.InvoiceStatusAuthorised, "100.01")
	e2.ActivityDate = &april
	e3 := entry("dept-a", "st-framing", "bill-2", models.InvoiceTypePayable, models.InvoiceStatusAuthorised, "100.00")

	got := Aggregate(in, []models.LedgerEntry{
		e1, e2, e3,
		entry("dept-a", "st-overheads", "bill-3", models.InvoiceTypePayable, models.InvoiceStatusPaid, "75"),
		entry("dept-a", "", "bill-4", models.InvoiceTypePayable, models.InvoiceStatusPaid, "40"),
		entry("dept-a", "st-framing", "inv-1", models.InvoiceTypeReceivable, models.InvoiceStatusPaid, "5000"),
	})

	d := got.Departments[0]
	assert.True(t, d.Income.Equal(dec("5000")))
	assert.True(t, d.Expenses.Equal(dec("415.01")))
	assert.True(t, d.NetProfit.Equal(dec("4584.99")))
	assert.True(t, d.Overheads.Equal(dec("75")))
	assert.True(t, d.UnassignedBills.Equal(dec("40")))
	assert.Equal(t, 4, d.PayableInvoiceCount)
	assert.Equal(t, 1, d.ReceivableInvoiceCount)
	require.NotNil(t, d.LastActivity)
	assert.True(t, d.LastActivity.Equal(april))

	// Footings is budgeted with no spend; Overheads never appears as a stage.
	require.Len(t, d.Stages, 2)
	footing, framing := d.Stages[0], d.Stages[1]

	assert.Equal(t, "Footings", footing.StageName)
	assert.True(t, footing.Spent.IsZero())
	assert.Equal(t, 0, footing.ItemCount)
	assert.True(t, footing.BudgetedAmount.Equal(dec("250")))
	assert.True(t, footing.Remaining.Equal(dec("250")))
	assert.Nil(t, footing.LastActivity)

	assert.Equal(t, "Framing", framing.StageName)
	assert.True(t, framing.Spent.Equal(dec("300.01")))
	assert.Equal(t, 3, framing.ItemCount)
	assert.Equal(t, "100.00", framing.AverageAmount.StringFixed(2))
	assert.True(t, framing.Remaining.Equal(dec("699.99")))
	require.NotNil(t, framing.LastActivity)
	assert.True(t, framing.LastActivity.Equal(april))

	assert.True(t, got.Totals.Overheads.Equal(dec("75")))
	assert.True(t, got.Totals.UnassignedBills.Equal(dec("40")))
}

func TestAggregate_TotalsAcrossDepartments(t *testing.T) {
	in := baseInput(models.FilterPaidAuthorized)
	in.Departments = []models.Department{deptA, deptB}

	got := Aggregate(in, []models.LedgerEntry{
		entry("dept-a", "", "inv-1", models.InvoiceTypeReceivable, models.InvoiceStatusPaid, "100.10"),
		entry("dept-b", "", "inv-2", models.InvoiceTypeReceivable, models.InvoiceStatusPaid, "200.20"),
		entry("dept-b", "", "bill-1", models.InvoiceTypePayable, models.InvoiceStatusPaid, "50.05"),
		entry("dept-gone", "", "inv-3", models.InvoiceTypeReceivable, models.InvoiceStatusPaid, "1"),
	})

	require.Len(t, got.Departments, 2)
	assert.Equal(t, models.FilterPaidAuthorized, got.Filter)
	assert.True(t, got.Totals.Income.Equal(dec("300.30")))
	assert.True(t, got.Totals.Expenses.Equal(dec("50.05")))
	assert.True(t, got.Totals.NetProfit.Equal(dec("250.25")))
	assert.Equal(t, 2, got.Totals.ReceivableInvoiceCount)
	assert.Equal(t, 1, got.Totals.PayableInvoiceCount)
	assert.True(t, got.Totals.UnassignedBills.Equal(dec("50.05")))

	for _, d := range got.Departments {
		assert.True(t, d.NetProfit.Equal(d.Income.Sub(d.Expenses)))
	}
}

func TestAggregate_CountsInvoicesNotLines(t *testing.T) {
	multi := entry("dept-a", "st-framing", "bill-1", models.InvoiceTypePayable, models.InvoiceStatusPaid, "30")
	multi.LineCount = 3

	got := Aggregate(baseInput(models.FilterPaidAuthorized), []models.LedgerEntry{
		multi,
		entry("dept-a", "st-footing", "bill-1", models.InvoiceTypePayable, models.InvoiceStatusPaid, "10"),
	})

	d := got.Departments[0]
	assert.Equal(t, 1, d.PayableInvoiceCount)
	require.Len(t, d.Stages, 2)
	assert.Equal(t, 1, d.Stages[0].ItemCount)
	assert.Equal(t, 3, d.Stages[1].ItemCount)
	assert.Equal(t, "10.00", d.Stages[1].AverageAmount.StringFixed(2))
}

func TestStatusFilter(t *testing.T) {
	assert.Equal(t, models.FilterPaid, models.ParseStatusFilter("paid"))
	assert.Equal(t, models.FilterPaidAuthorized, models.ParseStatusFilter("paid_authorized"))
	assert.Equal(t, models.FilterPaidAuthorized, models.ParseStatusFilter(""))
	assert.Equal(t, models.FilterPaidAuthorized, models.ParseStatusFilter("bogus"))

	assert.True(t, models.FilterPaid.Includes(models.InvoiceStatusPaid))
	assert.False(t, models.FilterPaid.Includes(models.InvoiceStatusAuthorised))
	assert.True(t, models.FilterPaidAuthorized.Includes(models.InvoiceStatusAuthorised))
	assert.False(t, models.FilterPaidAuthorized.Includes(models.InvoiceStatusDraft))
}
