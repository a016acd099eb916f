package export

import (
	"fmt"
	"io"
	"strconv"

	"loyalty-backend/models"

	"github.com/xuri/excelize/v2"
)

const usersSheet = "Users"

var usersHeader = []string{"Username", "Name", "Email", "Points", "Admin", "Created"}

// WriteUsersWorkbook renders the user directory as an XLSX workbook with a
// bold, filterable header row.
func WriteUsersWorkbook(w io.Writer, users []models.User) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", usersSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		admin := "no"
		if u.IsAdmin {
			admin = "yes"
		}
		rows = append(rows, []string{
			u.Username, u.Name, u.Email, strconv.Itoa(u.Points), admin, u.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	for col, h := range usersHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStr(usersSheet, cell, h); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	for r, row := range rows {
		for c, val := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if c == 3 {
				// numeric cell
				if err := f.SetCellValue(usersSheet, cell, users[r].Points); err != nil {
					return fmt.Errorf("set cell %s: %w", cell, err)
				}
				continue
			}
			if err := f.SetCellStr(usersSheet, cell, val); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	end, _ := excelize.CoordinatesToCellName(len(usersHeader), 1)
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(usersSheet, "A1", end, bold)
	}
	_ = f.AutoFilter(usersSheet, "A1:"+end, nil)

	for c := 1; c <= len(usersHeader); c++ {
		width := float64(len(usersHeader[c-1]))
		for r := 0; r < len(rows) && r < 50; r++ {
			if l := float64(len(rows[r][c-1])); l > width {
				width = l
			}
		}
		width *= 0.9
		if width < 12 {
			width = 12
		}
		if width > 40 {
			width = 40
		}
		col, _ := excelize.ColumnNumberToName(c)
		_ = f.SetColWidth(usersSheet, col, col, width)
	}

	return f.Write(w)
}
