package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SheetRow is one ledger row persisted in MySQL. Cells holds the
// ordered cell values JSON-encoded so tables keep free-form widths.
type SheetRow struct {
	ID     uint64 `gorm:"primaryKey"`
	Sheet  string `gorm:"size:64;index:idx_sheet_row,priority:1"`
	RowNum int    `gorm:"index:idx_sheet_row,priority:2"`
	Cells  string `gorm:"type:text"`
}

// MySQL implements Ledger on top of gorm.
type MySQL struct {
	db *gorm.DB
}

func NewMySQL(db *gorm.DB) (*MySQL, error) {
	if err := db.AutoMigrate(&SheetRow{}); err != nil {
		return nil, wrapStorage("migrate sheet rows", err)
	}
	return &MySQL{db: db}, nil
}

func (m *MySQL) ListRows(ctx context.Context, table string) ([][]string, error) {
	var rows []SheetRow
	err := m.db.WithContext(ctx).
		Where("sheet = ?", Normalize(table)).
		Order("row_num ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStorage("list rows", err)
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells, err := decodeCells(r.Cells)
		if err != nil {
			return nil, wrapStorage("decode row", err)
		}
		out = append(out, cells)
	}
	return out, nil
}

func (m *MySQL) AppendRow(ctx context.Context, table string, values []string) error {
	sheet := Normalize(table)
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last SheetRow
		next := 1
		err := tx.Where("sheet = ?", sheet).Order("row_num DESC").
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&last).Error
		switch {
		case err == nil:
			next = last.RowNum + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}
		return tx.Create(&SheetRow{Sheet: sheet, RowNum: next, Cells: encodeCells(values)}).Error
	})
	if err != nil {
		return wrapStorage("append row", err)
	}
	return nil
}

func (m *MySQL) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	if row < 2 || col < 1 {
		return wrapStorage("update cell", fmt.Errorf("bad address row=%d col=%d", row, col))
	}
	sheet := Normalize(table)
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec SheetRow
		if err := tx.Where("sheet = ? AND row_num = ?", sheet, row).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec).Error; err != nil {
			return err
		}
		cells, err := decodeCells(rec.Cells)
		if err != nil {
			return err
		}
		for len(cells) < col {
			cells = append(cells, "")
		}
		cells[col-1] = value
		return tx.Model(&rec).Update("cells", encodeCells(cells)).Error
	})
	if err != nil {
		return wrapStorage("update cell", err)
	}
	return nil
}

func (m *MySQL) DeleteRow(ctx context.Context, table string, row int) error {
	if row < 2 {
		return wrapStorage("delete row", fmt.Errorf("bad address row=%d", row))
	}
	sheet := Normalize(table)
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("sheet = ? AND row_num = ?", sheet, row).Delete(&SheetRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("row %d not found in %s", row, sheet)
		}
		// Keep spreadsheet semantics: rows below shift up by one.
		return tx.Model(&SheetRow{}).
			Where("sheet = ? AND row_num > ?", sheet, row).
			UpdateColumn("row_num", gorm.Expr("row_num - 1")).Error
	})
	if err != nil {
		return wrapStorage("delete row", err)
	}
	return nil
}

func (m *MySQL) EnsureTable(ctx context.Context, table string) error {
	sheet := Normalize(table)
	header := Header(sheet)
	if header == nil {
		return wrapStorage("ensure table", fmt.Errorf("no schema for %s", sheet))
	}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&SheetRow{}).Where("sheet = ?", sheet).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(&SheetRow{Sheet: sheet, RowNum: 1, Cells: encodeCells(header)}).Error
	})
	if err != nil {
		return wrapStorage("ensure table", err)
	}
	return nil
}

func encodeCells(values []string) string {
	b, _ := json.Marshal(values)
	return string(b)
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, err
	}
	return cells, nil
}
