package payroll

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

const (
	summarySheet    = "工资汇总"
	unverifiedSheet = "未核实班次"
)

var summaryHeaders = []string{
	"员工编号", "姓名", "类型", "班次数", "白班工时", "夜班工时", "假期工时", "总工时",
	"时薪", "工作工资", "假期费率", "假期工资", "应发工资",
}

var unverifiedHeaders = []string{"员工编号", "姓名", "班次编号", "站点编号", "日期", "工时", "缺少上班打卡", "缺少下班打卡"}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

// ExportPayRun 将工资计算结果写成 xlsx 工作簿
func ExportPayRun(w io.Writer, p Period, rows []*domain.PayBreakdown) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(summarySheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	if _, err := f.NewSheet(unverifiedSheet); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	lastCol, _ := excelize.ColumnNumberToName(len(summaryHeaders))
	f.SetCellValue(summarySheet, "A1", fmt.Sprintf("工资周期 %s", p))
	f.MergeCell(summarySheet, "A1", lastCol+"1")
	f.SetCellStyle(summarySheet, "A1", "A1", headerStyle)
	f.SetColWidth(summarySheet, "B", "B", 18)

	for i, h := range summaryHeaders {
		f.SetCellValue(summarySheet, cell(i+1, 2), h)
	}
	f.SetCellStyle(summarySheet, "A2", lastCol+"2", headerStyle)

	var total float64
	for r, b := range rows {
		row := r + 3
		values := []any{
			b.WorkerID, b.WorkerName, string(b.WorkerKind), b.ShiftCount,
			b.DayHours, b.NightHours, b.LeaveHours, b.TotalHours,
			b.HourlyRate, b.WorkPay, b.LeaveRate, b.LeavePay, b.TotalPay,
		}
		for c, v := range values {
			f.SetCellValue(summarySheet, cell(c+1, row), v)
		}
		total += b.TotalPay
	}
	totalRow := len(rows) + 3
	f.SetCellValue(summarySheet, cell(len(summaryHeaders)-1, totalRow), "合计")
	f.SetCellValue(summarySheet, cell(len(summaryHeaders), totalRow), domain.RoundMoney(total))

	for i, h := range unverifiedHeaders {
		f.SetCellValue(unverifiedSheet, cell(i+1, 1), h)
	}
	lastUnverifiedCol, _ := excelize.ColumnNumberToName(len(unverifiedHeaders))
	f.SetCellStyle(unverifiedSheet, "A1", lastUnverifiedCol+"1", headerStyle)

	row := 2
	for _, b := range rows {
		for _, u := range b.Unverified {
			values := []any{
				b.WorkerID, b.WorkerName, u.ShiftID, u.SiteID, u.Date.Format("2006-01-02"),
				u.Hours, yesNo(u.MissingClockIn), yesNo(u.MissingClockOut),
			}
			for c, v := range values {
				f.SetCellValue(unverifiedSheet, cell(c+1, row), v)
			}
			row++
		}
	}

	return f.Write(w)
}
