package services

import (
	"context"
	"fmt"
	"strings"

	"sitebooks/backend/xero"
)

// TrackingMapper resolves Xero tracking options on a line item to local
// department and stage ids. Names match case-insensitively.
type TrackingMapper struct {
	departmentCategory string
	stageCategory      string
	departments        map[string]string
	stages             map[string]map[string]string
}

// LoadTrackingMapper snapshots departments and stages for one sync run.
func LoadTrackingMapper(ctx context.Context, q Querier, departmentCategory, stageCategory string) (*TrackingMapper, error) {
	m := &TrackingMapper{
		departmentCategory: departmentCategory,
		stageCategory:      stageCategory,
		departments:        make(map[string]string),
		stages:             make(map[string]map[string]string),
	}

	rows, err := q.QueryContext(ctx, "SELECT id, name FROM departments")
	if err != nil {
		return nil, fmt.Errorf("error loading departments: %w", err)
	}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return nil, err
		}
		m.departments[normalizeName(name)] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = q.QueryContext(ctx, "SELECT id, department_id, name FROM stages")
	if err != nil {
		return nil, fmt.Errorf("error loading stages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, deptID, name string
		if err := rows.Scan(&id, &deptID, &name); err != nil {
			return nil, err
		}
		if m.stages[deptID] == nil {
			m.stages[deptID] = make(map[string]string)
		}
		m.stages[deptID][normalizeName(name)] = id
	}
	return m, rows.Err()
}

// Options reads the department and stage tracking option names off a Xero
// line item.
func (m *TrackingMapper) Options(li xero.LineItem) (department, stage string) {
	if m == nil {
		return "", ""
	}
	return li.TrackingOption(m.departmentCategory), li.TrackingOption(m.stageCategory)
}

// Resolve returns the department and stage for a pair of tracking option
// names. A stage only resolves within the resolved department. Either may be
// nil.
func (m *TrackingMapper) Resolve(departmentOption, stageOption string) (departmentID, stageID *string) {
	if m == nil {
		return nil, nil
	}

	dept, ok := m.departments[normalizeName(departmentOption)]
	if !ok {
		return nil, nil
	}
	departmentID = &dept

	if stage, ok := m.stages[dept][normalizeName(stageOption)]; ok {
		stageID = &stage
	}
	return departmentID, stageID
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
