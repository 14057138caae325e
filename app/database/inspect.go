package database

import "database/sql"

// ListTables returns the names of all user tables in the database,
// sorted alphabetically.
func ListTables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// CountRows returns the number of rows in the named table. The table name
// comes from ListTables, never from user input.
func CountRows(db *sql.DB, table string) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count)
	return count, err
}
