package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

// 导入文件必须包含的列
var requiredHeaders = []string{"类型", "姓名"}

// ImportWorkers 从 CSV 读取员工，第一行为表头。
// 可选列：邮箱、标准费率、加班费率、夜班费率、时薪、合同开始、合同结束、入职日期。
func ImportWorkers(r io.Reader, agencyID *int64) ([]*domain.Worker, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.TrimSpace(h)] = i
	}
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return nil, fmt.Errorf("缺少列 %q", h)
		}
	}

	var workers []*domain.Worker
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取文件失败: %w", err)
		}
		line++

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		w := &domain.Worker{
			FullName: get("姓名"),
			Email:    get("邮箱"),
			IsActive: true,
		}
		if w.FullName == "" {
			return nil, fmt.Errorf("第 %d 行缺少姓名", line)
		}

		switch get("类型") {
		case "正式", string(domain.WorkerKindStaff):
			w.Kind = domain.WorkerKindStaff
		case "派遣", string(domain.WorkerKindAgency):
			w.Kind = domain.WorkerKindAgency
			w.AgencyID = agencyID
		default:
			return nil, fmt.Errorf("第 %d 行的员工类型 %q 无效", line, get("类型"))
		}

		rates := []struct {
			col string
			dst *float64
		}{
			{"标准费率", &w.StandardRate},
			{"加班费率", &w.EnhancedRate},
			{"夜班费率", &w.NightRate},
			{"时薪", &w.HourlyRate},
		}
		for _, rate := range rates {
			v := get(rate.col)
			if v == "" {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return nil, fmt.Errorf("第 %d 行的%s %q 无效", line, rate.col, v)
			}
			*rate.dst = f
		}

		dates := []struct {
			col string
			dst **time.Time
		}{
			{"合同开始", &w.ContractStart},
			{"合同结束", &w.ContractEnd},
			{"入职日期", &w.EmploymentStart},
		}
		for _, d := range dates {
			v := get(d.col)
			if v == "" {
				continue
			}
			t, err := time.Parse(time.DateOnly, v)
			if err != nil {
				return nil, fmt.Errorf("第 %d 行的%s %q 无效", line, d.col, v)
			}
			*d.dst = &t
		}

		workers = append(workers, w)
	}

	return workers, nil
}
