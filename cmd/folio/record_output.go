package main

import (
	"folio/internal/ledger"
)

func recordTable(record *ledger.Record) string {
	rows := [][]string{
		{ledger.FieldIdentifier, record.Identifier},
		{ledger.FieldSpec, record.SetSpec},
		{ledger.FieldCreated, record.CreatedTime},
		{ledger.FieldInfo, record.Info},
		{ledger.FieldState, record.State},
		{ledger.FieldStateTime, record.StateTime},
	}
	return renderTable([]string{"FIELD", "VALUE"}, rows, nil)
}

func rowsTable(schema ledger.Schema, rows []ledger.Row) string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		values := make([]string, 0, schema.Len())
		for _, field := range schema.Fields() {
			value, _ := row.Field(field)
			values = append(values, value)
		}
		out = append(out, values)
	}
	return renderTable(schema.Fields(), out, nil)
}
