package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/sysu-ecnc-dev/care-roster/backend/internal/approval"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/constraint"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/roster"
	"github.com/sysu-ecnc-dev/care-roster/backend/internal/seed"
)

func main() {
	var op int
	var sites, staff, agency, days int
	var file, from string
	var randomSeed int64

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机站点与员工, 2: 从 CSV 导入员工, 3: 生成排班)")
	flag.IntVar(&sites, "sites", 3, "随机插入的站点数量")
	flag.IntVar(&staff, "staff", 10, "随机插入的正式员工数量")
	flag.IntVar(&agency, "agency", 4, "随机插入的派遣员工数量")
	flag.StringVar(&file, "file", "", "导入员工的 CSV 文件路径")
	flag.StringVar(&from, "from", time.Now().Format(time.DateOnly), "排班起始日期")
	flag.IntVar(&days, "days", 7, "排班天数")
	flag.Int64Var(&randomSeed, "seed", time.Now().UnixNano(), "随机数种子")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)
	bg := context.Background()

	// 执行操作
	switch op {
	case 0:
		logger.Error("未指定操作")
	case 1:
		if sites < 0 || staff < 0 || agency < 0 {
			logger.Error("请输入合法的数量")
			return
		}

		cnt := 0
		for _, site := range seed.RandomSites(sites) {
			if err := repo.CreateSite(bg, site); err != nil {
				logger.Error("无法插入站点", slog.String("name", site.Name), slog.String("error", err.Error()))
				continue
			}
			cnt++
		}
		logger.Info("插入站点成功", slog.Int("count", cnt))

		var agencyID *int64
		if agency > 0 {
			id, err := ensureAgency(bg, repo, cfg.Seed.AgencyName)
			if err != nil {
				logger.Error("无法创建派遣公司", slog.String("error", err.Error()))
				return
			}
			agencyID = &id
		}

		rng := rand.New(rand.NewSource(randomSeed))
		workers := seed.RandomWorkers(rng, staff, agency, agencyID, cfg.Seed.EmailDomain, time.Now())
		logger.Info("插入员工成功", slog.Int("count", insertWorkers(bg, repo, workers, logger)))
	case 2:
		if file == "" {
			logger.Error("请指定 CSV 文件路径")
			return
		}
		f, err := os.Open(file)
		if err != nil {
			logger.Error("无法打开文件", slog.String("error", err.Error()))
			return
		}
		defer f.Close()

		id, err := ensureAgency(bg, repo, cfg.Seed.AgencyName)
		if err != nil {
			logger.Error("无法创建派遣公司", slog.String("error", err.Error()))
			return
		}

		workers, err := seed.ImportWorkers(f, &id)
		if err != nil {
			logger.Error("无法解析员工文件", slog.String("error", err.Error()))
			return
		}
		logger.Info("导入员工成功", slog.Int("count", insertWorkers(bg, repo, workers, logger)))
	case 3:
		start, err := time.Parse(time.DateOnly, from)
		if err != nil || days <= 0 {
			logger.Error("请输入合法的排班日期与天数")
			return
		}

		allSites, err := repo.GetAllSites(bg)
		if err != nil {
			logger.Error("无法获取站点", slog.String("error", err.Error()))
			return
		}
		allWorkers, err := repo.ListWorkers(bg)
		if err != nil {
			logger.Error("无法获取员工", slog.String("error", err.Error()))
			return
		}

		activeSites := make([]*domain.Site, 0, len(allSites))
		for _, s := range allSites {
			if s.IsActive {
				activeSites = append(activeSites, s)
			}
		}
		// 只排正式员工，避免派遣合同不覆盖排班日期
		staffWorkers := make([]*domain.Worker, 0, len(allWorkers))
		for _, w := range allWorkers {
			if w.IsActive && !w.IsAgency() {
				staffWorkers = append(staffWorkers, w)
			}
		}

		manager := roster.NewManager(
			repo,
			approval.NewWorkflow(constraint.New(constraint.Rules{
				MinRestHours:      cfg.Roster.MinRestHours,
				MaxWorkersPerSite: cfg.Roster.MaxWorkersPerSite,
			})),
			approval.ExtensionPolicy{
				AutoApproveHours: cfg.Approval.AutoApproveHours,
				MaxHours:         cfg.Approval.MaxExtensionHours,
			},
			nil, nil, nil,
			logger,
		)

		cnt := 0
		for d, shifts := range seed.WeekRota(activeSites, staffWorkers, start, days) {
			created, err := manager.Create(bg, roster.CreateCommand{Candidates: shifts})
			if err != nil {
				logger.Error("无法生成排班", slog.String("date", start.AddDate(0, 0, d).Format(time.DateOnly)), slog.String("error", err.Error()))
				continue
			}
			cnt += len(created)
		}
		logger.Info("生成排班成功", slog.Int("count", cnt))
	default:
		logger.Error("指定的操作非法")
	}
}

// ensureAgency 返回指定名称的派遣公司 ID，不存在时创建
func ensureAgency(ctx context.Context, repo *repository.Repository, name string) (int64, error) {
	agency := &domain.Agency{Name: name}
	err := repo.CreateAgency(ctx, agency)
	if err == nil {
		return agency.ID, nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.ConstraintName != "agencies_name_key" {
		return 0, err
	}

	agencies, err := repo.GetAllAgencies(ctx)
	if err != nil {
		return 0, err
	}
	for _, a := range agencies {
		if a.Name == name {
			return a.ID, nil
		}
	}
	return 0, domain.NewError(domain.KindNotFound, "派遣公司 %s 不存在", name)
}

func insertWorkers(ctx context.Context, repo *repository.Repository, workers []*domain.Worker, logger *slog.Logger) int {
	cnt := 0
	for _, w := range workers {
		if err := repo.CreateWorker(ctx, w); err != nil {
			logger.Error("无法插入员工", slog.String("name", w.FullName), slog.String("error", err.Error()))
			continue
		}
		cnt++
	}
	return cnt
}
