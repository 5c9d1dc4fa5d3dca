package migrations

// The DDL below is written to run unchanged on PostgreSQL and SQLite:
// TEXT ids, NUMERIC money, TIMESTAMP (no zone) stored as UTC.

var createUsers = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

var createDepartmentsAndStages = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS stages (
		id TEXT PRIMARY KEY,
		department_id TEXT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (department_id, name)
	)`,
}

var createInvoices = []string{
	`CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		xero_invoice_id TEXT NOT NULL,
		invoice_number TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		contact_name TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		sub_total NUMERIC(14,2) NOT NULL DEFAULT 0,
		total_tax NUMERIC(14,2) NOT NULL DEFAULT 0,
		total NUMERIC(14,2) NOT NULL DEFAULT 0,
		amount_due NUMERIC(14,2) NOT NULL DEFAULT 0,
		amount_paid NUMERIC(14,2) NOT NULL DEFAULT 0,
		currency_code TEXT NOT NULL DEFAULT '',
		invoice_date TIMESTAMP,
		due_date TIMESTAMP,
		xero_updated_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, xero_invoice_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices (status)`,
	`CREATE TABLE IF NOT EXISTS invoice_line_items (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
		xero_line_item_id TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		quantity NUMERIC(14,4) NOT NULL DEFAULT 0,
		unit_amount NUMERIC(14,4) NOT NULL DEFAULT 0,
		line_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		account_code TEXT NOT NULL DEFAULT '',
		department_id TEXT REFERENCES departments(id) ON DELETE SET NULL,
		stage_id TEXT REFERENCES stages(id) ON DELETE SET NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (invoice_id, xero_line_item_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_line_items_department ON invoice_line_items (department_id)`,
}

var createBudgetsAndFavorites = []string{
	`CREATE TABLE IF NOT EXISTS budget_summaries (
		department_id TEXT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
		stage_id TEXT NOT NULL REFERENCES stages(id) ON DELETE CASCADE,
		budgeted_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		actual_cost NUMERIC(14,2) NOT NULL DEFAULT 0,
		remaining NUMERIC(14,2) NOT NULL DEFAULT 0,
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (department_id, stage_id)
	)`,
	`CREATE TABLE IF NOT EXISTS favorite_departments (
		user_id TEXT NOT NULL,
		department_id TEXT NOT NULL REFERENCES departments(id) ON DELETE CASCADE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, department_id)
	)`,
}

var createXeroConnections = []string{
	`CREATE TABLE IF NOT EXISTS xero_connections (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		tenant_id TEXT NOT NULL,
		tenant_name TEXT NOT NULL DEFAULT '',
		access_token_enc TEXT NOT NULL,
		refresh_token_enc TEXT NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		version INTEGER NOT NULL DEFAULT 1,
		connected_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (user_id, tenant_id)
	)`,
}

// department_invoice_summaries is the precomputed projection read by the
// default dashboard filter. It is rebuilt wholesale after each sync.
var createDepartmentInvoiceSummaries = []string{
	`CREATE TABLE IF NOT EXISTS department_invoice_summaries (
		department_id TEXT NOT NULL,
		stage_id TEXT NOT NULL DEFAULT '',
		stage_name TEXT NOT NULL DEFAULT '',
		invoice_id TEXT NOT NULL,
		invoice_type TEXT NOT NULL,
		status TEXT NOT NULL,
		line_total NUMERIC(14,2) NOT NULL,
		line_count INTEGER NOT NULL,
		activity_date TIMESTAMP,
		PRIMARY KEY (department_id, stage_id, invoice_id)
	)`,
}
