package schema

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const tablesQuery = `
SELECT
    t.table_schema,
    t.table_name,
    c.column_name,
    c.data_type,
    c.is_nullable,
    c.column_default,
    col_description(
        (quote_ident(t.table_schema) || '.' || quote_ident(t.table_name))::regclass,
        c.ordinal_position
    ) AS column_comment
FROM information_schema.tables t
JOIN information_schema.columns c
    ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE t.table_schema IN ('public', 'auth')
    AND t.table_type = 'BASE TABLE'
ORDER BY t.table_schema, t.table_name, c.ordinal_position`

const constraintsQuery = `
SELECT
    tc.table_schema,
    tc.table_name,
    tc.constraint_name,
    tc.constraint_type,
    kcu.column_name,
    ccu.table_schema AS ref_schema,
    ccu.table_name AS ref_table,
    ccu.column_name AS ref_column
FROM information_schema.table_constraints tc
LEFT JOIN information_schema.key_column_usage kcu
    ON tc.constraint_name = kcu.constraint_name
    AND tc.table_schema = kcu.table_schema
LEFT JOIN information_schema.constraint_column_usage ccu
    ON tc.constraint_name = ccu.constraint_name
    AND tc.table_schema = ccu.table_schema
WHERE tc.table_schema = 'public'
ORDER BY tc.table_name, tc.constraint_name`

const checksQuery = `
SELECT
    n.nspname AS schema,
    r.relname AS table_name,
    c.conname AS constraint_name,
    pg_get_constraintdef(c.oid) AS definition
FROM pg_constraint c
JOIN pg_class r ON c.conrelid = r.oid
JOIN pg_namespace n ON r.relnamespace = n.oid
WHERE c.contype = 'c' AND n.nspname = 'public'
ORDER BY r.relname, c.conname`

const enumsQuery = `
SELECT
    t.typname AS enum_name,
    array_agg(e.enumlabel ORDER BY e.enumsortorder) AS values
FROM pg_type t
JOIN pg_enum e ON t.oid = e.enumtypid
JOIN pg_namespace n ON t.typnamespace = n.oid
WHERE n.nspname = 'public'
GROUP BY t.typname
ORDER BY t.typname`

const functionsQuery = `
SELECT
    p.proname AS name,
    pg_get_function_arguments(p.oid) AS args,
    pg_get_function_result(p.oid) AS return_type,
    d.description AS comment
FROM pg_proc p
JOIN pg_namespace n ON p.pronamespace = n.oid
LEFT JOIN pg_description d ON p.oid = d.objoid
WHERE n.nspname = 'public'
    AND p.prokind = 'f'
ORDER BY p.proname`

const policiesQuery = `
SELECT
    schemaname,
    tablename,
    policyname,
    permissive,
    roles,
    cmd,
    qual,
    with_check
FROM pg_policies
WHERE schemaname = 'public'
ORDER BY tablename, policyname`

// Dump connects to the database, extracts tables, constraints, enums,
// functions, and RLS policies, and returns the assembled snapshot. It is
// invoked once at setup; nothing in per-scenario processing touches the
// database again until an explicit refresh.
func Dump(ctx context.Context, databaseURL string) (*Snapshot, error) {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("schema: connect: %w", err)
	}
	defer conn.Close(ctx)

	tables, order, err := dumpTables(ctx, conn)
	if err != nil {
		return nil, err
	}
	if err := attachConstraints(ctx, conn, tables); err != nil {
		return nil, err
	}
	if err := attachChecks(ctx, conn, tables); err != nil {
		return nil, err
	}
	enums, err := dumpEnums(ctx, conn)
	if err != nil {
		return nil, err
	}
	functions, err := dumpFunctions(ctx, conn)
	if err != nil {
		return nil, err
	}
	policies, err := dumpPolicies(ctx, conn)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ExtractedAt:   time.Now().Format(time.RFC3339),
		Tables:        make([]Table, 0, len(order)),
		Enums:         enums,
		Functions:     functions,
		RLSPolicies:   policies,
		TableCount:    len(order),
		FunctionCount: len(functions),
		EnumCount:     len(enums),
	}
	for _, key := range order {
		snap.Tables = append(snap.Tables, *tables[key])
	}
	return snap, nil
}

func dumpTables(ctx context.Context, conn *pgx.Conn) (map[string]*Table, []string, error) {
	rows, err := conn.Query(ctx, tablesQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("schema: query tables: %w", err)
	}
	defer rows.Close()

	tables := map[string]*Table{}
	var order []string
	for rows.Next() {
		var schemaName, tableName, colName, dataType, nullable string
		var colDefault, comment *string
		if err := rows.Scan(&schemaName, &tableName, &colName, &dataType, &nullable, &colDefault, &comment); err != nil {
			return nil, nil, fmt.Errorf("schema: scan table row: %w", err)
		}
		key := schemaName + "." + tableName
		table, ok := tables[key]
		if !ok {
			table = &Table{Schema: schemaName, Name: tableName}
			tables[key] = table
			order = append(order, key)
		}
		table.Columns = append(table.Columns, Column{
			Name:     colName,
			Type:     dataType,
			Nullable: nullable == "YES",
			Default:  colDefault,
			Comment:  comment,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("schema: read table rows: %w", err)
	}
	return tables, order, nil
}

func attachConstraints(ctx context.Context, conn *pgx.Conn, tables map[string]*Table) error {
	rows, err := conn.Query(ctx, constraintsQuery)
	if err != nil {
		return fmt.Errorf("schema: query constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, name, ctype string
		var column, refSchema, refTable, refColumn *string
		if err := rows.Scan(&schemaName, &tableName, &name, &ctype, &column, &refSchema, &refTable, &refColumn); err != nil {
			return fmt.Errorf("schema: scan constraint row: %w", err)
		}
		table, ok := tables[schemaName+"."+tableName]
		if !ok {
			continue
		}
		constraint := Constraint{Name: name, Type: ctype, Column: column, RefColumn: refColumn}
		if refTable != nil && refSchema != nil {
			qualified := *refSchema + "." + *refTable
			constraint.RefTable = &qualified
		}
		table.Constraints = append(table.Constraints, constraint)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("schema: read constraint rows: %w", err)
	}
	return nil
}

func attachChecks(ctx context.Context, conn *pgx.Conn, tables map[string]*Table) error {
	rows, err := conn.Query(ctx, checksQuery)
	if err != nil {
		return fmt.Errorf("schema: query check constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var schemaName, tableName, name, definition string
		if err := rows.Scan(&schemaName, &tableName, &name, &definition); err != nil {
			return fmt.Errorf("schema: scan check row: %w", err)
		}
		table, ok := tables[schemaName+"."+tableName]
		if !ok {
			continue
		}
		table.CheckConstraints = append(table.CheckConstraints, CheckConstraint{Name: name, Definition: definition})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("schema: read check rows: %w", err)
	}
	return nil
}

func dumpEnums(ctx context.Context, conn *pgx.Conn) ([]Enum, error) {
	rows, err := conn.Query(ctx, enumsQuery)
	if err != nil {
		return nil, fmt.Errorf("schema: query enums: %w", err)
	}
	defer rows.Close()

	var enums []Enum
	for rows.Next() {
		var e Enum
		if err := rows.Scan(&e.Name, &e.Values); err != nil {
			return nil, fmt.Errorf("schema: scan enum row: %w", err)
		}
		enums = append(enums, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schema: read enum rows: %w", err)
	}
	return enums, nil
}

func dumpFunctions(ctx context.Context, conn *pgx.Conn) ([]Function, error) {
	rows, err := conn.Query(ctx, functionsQuery)
	if err != nil {
		return nil, fmt.Errorf("schema: query functions: %w", err)
	}
	defer rows.Close()

	functions := []Function{}
	for rows.Next() {
		var f Function
		if err := rows.Scan(&f.Name, &f.Args, &f.Returns, &f.Comment); err != nil {
			return nil, fmt.Errorf("schema: scan function row: %w", err)
		}
		functions = append(functions, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schema: read function rows: %w", err)
	}
	return functions, nil
}

func dumpPolicies(ctx context.Context, conn *pgx.Conn) (map[string][]Policy, error) {
	rows, err := conn.Query(ctx, policiesQuery)
	if err != nil {
		return nil, fmt.Errorf("schema: query rls policies: %w", err)
	}
	defer rows.Close()

	policies := map[string][]Policy{}
	for rows.Next() {
		var schemaName, tableName string
		var p Policy
		if err := rows.Scan(&schemaName, &tableName, &p.Name, &p.Permissive, &p.Roles, &p.Command, &p.Using, &p.WithCheck); err != nil {
			return nil, fmt.Errorf("schema: scan policy row: %w", err)
		}
		key := schemaName + "." + tableName
		policies[key] = append(policies[key], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schema: read policy rows: %w", err)
	}
	return policies, nil
}
