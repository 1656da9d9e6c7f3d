// Package sheets mirrors stored expenses to a spreadsheet.
package sheets

import (
	"context"

	"chitieu/internal/core"
)

// ExpenseMirror appends a copy of a stored expense and returns a reference
// to the written row.
type ExpenseMirror interface {
	Append(ctx context.Context, e core.ExpenseRecord) (rowRef string, err error)
}

// Header is the column order of a mirrored expense row.
var Header = []string{"ID", "Ngày", "Người dùng", "Danh mục", "Số tiền (VND)", "Số tiền gốc", "Tiền tệ"}
