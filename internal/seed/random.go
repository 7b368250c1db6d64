// Package seed 生成用于开发与演示的站点、员工和排班数据。
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/mozillazg/go-pinyin"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

var siteNames = []string{"东区护理站", "西区护理站", "南区康复中心", "北区长者之家", "中心院区", "滨江公寓"}
var siteColors = []string{"#e57373", "#64b5f6", "#81c784", "#ffb74d", "#ba68c8", "#4db6ac"}

func RandomChineseName(rng *rand.Rand) string {
	surname := commonSurnames[rng.Intn(len(commonSurnames))]
	nameLength := rng.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rng.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// EmailFromName 用姓名的拼音生成邮箱，seen 用于给重名的员工加上数字后缀
func EmailFromName(fullName string, domainName string, seen map[string]int) string {
	local := strings.Join(pinyin.LazyConvert(fullName, nil), "")
	if local == "" {
		local = "worker"
	}

	seen[local]++
	if n := seen[local]; n > 1 {
		local = fmt.Sprintf("%s%d", local, n)
	}
	return local + "@" + domainName
}

// RandomSites 返回 n 个站点，n 超过预设名称数量时按序号命名
func RandomSites(n int) []*domain.Site {
	sites := make([]*domain.Site, n)
	for i := range sites {
		name := fmt.Sprintf("护理站%02d", i+1)
		if i < len(siteNames) {
			name = siteNames[i]
		}
		sites[i] = &domain.Site{
			Name:     name,
			Color:    siteColors[i%len(siteColors)],
			IsActive: true,
		}
	}
	return sites
}

// RandomWorkers 生成 staff 个正式员工与 agency 个派遣员工，派遣合同从 start 起为期一年
func RandomWorkers(rng *rand.Rand, staff, agency int, agencyID *int64, emailDomain string, start time.Time) []*domain.Worker {
	seen := make(map[string]int)
	workers := make([]*domain.Worker, 0, staff+agency)

	for i := 0; i < staff; i++ {
		name := RandomChineseName(rng)
		standard := float64(1200+rng.Intn(300)) / 100
		employed := domain.DateOnly(start).AddDate(0, -rng.Intn(36), 0)
		workers = append(workers, &domain.Worker{
			Kind:            domain.WorkerKindStaff,
			FullName:        name,
			Email:           EmailFromName(name, emailDomain, seen),
			IsActive:        true,
			StandardRate:    standard,
			EnhancedRate:    domain.RoundMoney(standard * 1.5),
			NightRate:       domain.RoundMoney(standard * 1.25),
			EmploymentStart: &employed,
		})
	}

	contractStart := domain.DateOnly(start)
	contractEnd := contractStart.AddDate(1, 0, -1)
	for i := 0; i < agency; i++ {
		name := RandomChineseName(rng)
		workers = append(workers, &domain.Worker{
			Kind:          domain.WorkerKindAgency,
			FullName:      name,
			Email:         EmailFromName(name, emailDomain, seen),
			IsActive:      true,
			HourlyRate:    float64(1600+rng.Intn(400)) / 100,
			AgencyID:      agencyID,
			ContractStart: &contractStart,
			ContractEnd:   &contractEnd,
		})
	}

	return workers
}
