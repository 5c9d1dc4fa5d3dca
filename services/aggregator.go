package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sitebooks/backend/models"
)

// AggregateInput is the reference data the fold needs besides the entries.
type AggregateInput struct {
	Filter             models.StatusFilter
	Departments        []models.Department
	Stages             []models.Stage
	Budgets            map[StageKey]decimal.Decimal
	OverheadsStageName string
}

// StageKey identifies a stage within a department.
type StageKey struct {
	DepartmentID string
	StageID      string
}

// Aggregate folds ledger entries into per-department, per-stage and overall
// totals. Entries for unknown departments or outside the filter are ignored.
func Aggregate(in AggregateInput, entries []models.LedgerEntry) models.Summary {
	agg := newAggregator(in)
	for _, e := range entries {
		agg.add(e)
	}
	return agg.summary()
}

type stageAcc struct {
	id, name     string
	sortOrder    int
	spent        decimal.Decimal
	items        int
	lastActivity *time.Time
}

type departmentAcc struct {
	dept         models.Department
	income       decimal.Decimal
	expenses     decimal.Decimal
	unassigned   decimal.Decimal
	overheads    decimal.Decimal
	receivables  map[string]struct{}
	payables     map[string]struct{}
	lastActivity *time.Time
	stages       map[string]*stageAcc
}

type aggregator struct {
	in          AggregateInput
	order       []string
	departments map[string]*departmentAcc
	stageInfo   map[string]models.Stage
}

func newAggregator(in AggregateInput) *aggregator {
	a := &aggregator{
		in:          in,
		departments: make(map[string]*departmentAcc, len(in.Departments)),
		stageInfo:   make(map[string]models.Stage, len(in.Stages)),
	}
	for _, d := range in.Departments {
		a.order = append(a.order, d.ID)
		a.departments[d.ID] = &departmentAcc{
			dept:        d,
			receivables: make(map[string]struct{}),
			payables:    make(map[string]struct{}),
			stages:      make(map[string]*stageAcc),
		}
	}
	for _, s := range in.Stages {
		a.stageInfo[s.ID] = s
	}
	return a
}

func (a *aggregator) add(e models.LedgerEntry) {
	d, ok := a.departments[e.DepartmentID]
	if !ok || !a.in.Filter.Includes(e.Status) {
		return
	}
	d.lastActivity = latest(d.lastActivity, e.ActivityDate)

	switch e.InvoiceType {
	case models.InvoiceTypeReceivable:
		d.income = d.income.Add(e.Amount)
		d.receivables[e.InvoiceID] = struct{}{}
	case models.InvoiceTypePayable:
		d.expenses = d.expenses.Add(e.Amount)
		d.payables[e.InvoiceID] = struct{}{}

		switch {
		case e.StageID == "":
			d.unassigned = d.unassigned.Add(e.Amount)
		case a.isOverheads(e.StageID, e.StageName):
			d.overheads = d.overheads.Add(e.Amount)
		default:
			s := a.stage(d, e.StageID, e.StageName)
			s.spent = s.spent.Add(e.Amount)
			s.items += e.LineCount
			s.lastActivity = latest(s.lastActivity, e.ActivityDate)
		}
	}
}

func (a *aggregator) isOverheads(stageID, stageName string) bool {
	if a.in.OverheadsStageName == "" {
		return false
	}
	name := stageName
	if s, ok := a.stageInfo[stageID]; ok {
		name = s.Name
	}
	return strings.EqualFold(strings.TrimSpace(name), a.in.OverheadsStageName)
}

func (a *aggregator) stage(d *departmentAcc, id, name string) *stageAcc {
	if s, ok := d.stages[id]; ok {
		return s
	}
	s := &stageAcc{id: id, name: name, sortOrder: 1 << 30}
	if info, ok := a.stageInfo[id]; ok {
		s.name = info.Name
		s.sortOrder = info.SortOrder
	}
	d.stages[id] = s
	return s
}

func (a *aggregator) summary() models.Summary {
	// Budgeted stages show up even with nothing spent.
	for key := range a.in.Budgets {
		d, ok := a.departments[key.DepartmentID]
		if !ok {
			continue
		}
		if a.isOverheads(key.StageID, "") {
			continue
		}
		a.stage(d, key.StageID, "")
	}

	out := models.Summary{
		Filter:      a.in.Filter,
		Departments: make([]models.DepartmentTotals, 0, len(a.order)),
	}
	for _, id := range a.order {
		d := a.departments[id]
		dt := models.DepartmentTotals{
			DepartmentID:           d.dept.ID,
			Name:                   d.dept.Name,
			Status:                 d.dept.Status,
			Income:                 d.income.Round(2),
			Expenses:               d.expenses.Round(2),
			ReceivableInvoiceCount: len(d.receivables),
			PayableInvoiceCount:    len(d.payables),
			LastActivity:           d.lastActivity,
			UnassignedBills:        d.unassigned.Round(2),
			Overheads:              d.overheads.Round(2),
			Stages:                 a.stageTotals(d),
		}
		dt.NetProfit = dt.Income.Sub(dt.Expenses)
		out.Departments = append(out.Departments, dt)

		out.Totals.Income = out.Totals.Income.Add(dt.Income)
		out.Totals.Expenses = out.Totals.Expenses.Add(dt.Expenses)
		out.Totals.ReceivableInvoiceCount += dt.ReceivableInvoiceCount
		out.Totals.PayableInvoiceCount += dt.PayableInvoiceCount
		out.Totals.UnassignedBills = out.Totals.UnassignedBills.Add(dt.UnassignedBills)
		out.Totals.Overheads = out.Totals.Overheads.Add(dt.Overheads)
	}
	out.Totals.NetProfit = out.Totals.Income.Sub(out.Totals.Expenses)
	return out
}

func (a *aggregator) stageTotals(d *departmentAcc) []models.StageTotals {
	stages := make([]*stageAcc, 0, len(d.stages))
	for _, s := range d.stages {
		stages = append(stages, s)
	}
	sort.Slice(stages, func(i, j int) bool {
		if stages[i].sortOrder != stages[j].sortOrder {
			return stages[i].sortOrder < stages[j].sortOrder
		}
		return stages[i].name < stages[j].name
	})

	out := make([]models.StageTotals, 0, len(stages))
	for _, s := range stages {
		st := models.StageTotals{
			StageID:        s.id,
			StageName:      s.name,
			Spent:          s.spent.Round(2),
			ItemCount:      s.items,
			AverageAmount:  decimal.Zero,
			LastActivity:   s.lastActivity,
			BudgetedAmount: a.in.Budgets[StageKey{DepartmentID: d.dept.ID, StageID: s.id}].Round(2),
		}
		if s.items > 0 {
			st.AverageAmount = s.spent.Div(decimal.NewFromInt(int64(s.items))).Round(2)
		}
		st.Remaining = st.BudgetedAmount.Sub(st.Spent)
		out = append(out, st)
	}
	return out
}

func latest(cur, next *time.Time) *time.Time {
	if next == nil {
		return cur
	}
	if cur == nil || next.After(*cur) {
		t := *next
		return &t
	}
	return cur
}

// SummaryOptions selects what Summarize reports on.
type SummaryOptions struct {
	Filter             models.StatusFilter
	DepartmentID       string
	OverheadsStageName string
}

// Summarize loads reference data, streams entries from the source matching
// the filter and aggregates them.
func Summarize(ctx context.Context, db Querier, opts SummaryOptions) (models.Summary, error) {
	return SummarizeFrom(ctx, db, SourceFor(db, opts.Filter), opts)
}

// SummarizeFrom is Summarize with an explicit entry source.
func SummarizeFrom(ctx context.Context, db Querier, src EntrySource, opts SummaryOptions) (models.Summary, error) {
	if opts.Filter == "" {
		opts.Filter = models.FilterPaidAuthorized
	}

	in := AggregateInput{Filter: opts.Filter, OverheadsStageName: opts.OverheadsStageName}
	var err error

	if opts.DepartmentID != "" {
		d, err := GetDepartment(ctx, db, opts.DepartmentID)
		if err != nil {
			return models.Summary{}, err
		}
		in.Departments = []models.Department{*d}
	} else if in.Departments, err = ListDepartments(ctx, db); err != nil {
		return models.Summary{}, err
	}

	if in.Stages, err = ListStages(ctx, db, opts.DepartmentID); err != nil {
		return models.Summary{}, err
	}
	if in.Budgets, err = loadBudgets(ctx, db, opts.DepartmentID); err != nil {
		return models.Summary{}, err
	}

	agg := newAggregator(in)
	err = src.Entries(ctx, EntryQuery{Filter: opts.Filter, DepartmentID: opts.DepartmentID}, func(e models.LedgerEntry) error {
		agg.add(e)
		return nil
	})
	if err != nil {
		return models.Summary{}, err
	}
	return agg.summary(), nil
}

func loadBudgets(ctx context.Context, db Querier, departmentID string) (map[StageKey]decimal.Decimal, error) {
	query := "SELECT department_id, stage_id, budgeted_amount FROM budget_summaries"
	var args []interface{}
	if departmentID != "" {
		query += " WHERE department_id = $1"
		args = append(args, departmentID)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error loading budgets: %w", err)
	}
	defer rows.Close()

	budgets := make(map[StageKey]decimal.Decimal)
	for rows.Next() {
		var (
			k      StageKey
			amount decimal.Decimal
		)
		if err := rows.Scan(&k.DepartmentID, &k.StageID, &amount); err != nil {
			return nil, err
		}
		budgets[k] = amount
	}
	return budgets, rows.Err()
}
