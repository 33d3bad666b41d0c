package cmd

import (
	"fmt"
	"log"

	"ScoreRack/config"
	"ScoreRack/core/auth"
	"ScoreRack/db"
	"ScoreRack/model"
	"ScoreRack/repository"

	"github.com/spf13/cobra"
)

var (
	seedManagerUsername string
	seedManagerEmail    string
	seedManagerPassword string
)

// 管乐团常见编制，按分组组织；按需在这里增删
var seedSections = map[string][]string{
	"木管": {"长笛", "单簧管", "萨克斯"},
	"铜管": {"小号", "长号", "圆号", "大号"},
	"打击乐": {"小军鼓", "定音鼓", "马林巴"},
}

// 常规声部划分；无声部区分的乐器使用0号通用声部，不在目录内
var seedVoices = []string{"一声部", "二声部", "三声部"}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "初始化参考数据",
	Long:  `建表并写入乐器分组、乐器、声部等静态参考数据，同时创建默认管理员账号。重复执行是幂等的。`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		auth.Configure(cfg.JWTSecret, cfg.JWTTTLHours)

		if err := db.ConnectDB(cfg); err != nil {
			log.Fatalf("无法连接数据库: %v", err)
		}
		defer db.DB.Close()

		if err := db.ConnectGormDB(cfg); err != nil {
			log.Fatalf("无法连接GORM数据库: %v", err)
		}
		defer db.CloseGormDB()

		if err := db.InitDB(); err != nil {
			log.Fatalf("建表失败: %v", err)
		}
		if err := db.AutoMigrateModels(
			&model.MusicalPiece{},
			&model.Section{},
			&model.Instrument{},
			&model.VocalPart{},
		); err != nil {
			log.Fatalf("迁移目录表失败: %v", err)
		}

		for sectionName, instruments := range seedSections {
			section := model.Section{Name: sectionName}
			if err := db.GormDB.Where("name = ?", sectionName).FirstOrCreate(&section).Error; err != nil {
				log.Fatalf("写入分组失败 %s: %v", sectionName, err)
			}
			for _, insName := range instruments {
				ins := model.Instrument{Name: insName, SectionID: section.ID}
				if err := db.GormDB.Where("name = ? AND section_id = ?", insName, section.ID).FirstOrCreate(&ins).Error; err != nil {
					log.Fatalf("写入乐器失败 %s: %v", insName, err)
				}
			}
			fmt.Printf("分组 %s: %d 件乐器\n", sectionName, len(instruments))
		}

		for _, voiceName := range seedVoices {
			v := model.VocalPart{Name: voiceName}
			if err := db.GormDB.Where("name = ?", voiceName).FirstOrCreate(&v).Error; err != nil {
				log.Fatalf("写入声部失败 %s: %v", voiceName, err)
			}
		}
		fmt.Printf("声部: %d 个\n", len(seedVoices))

		// 默认管理员账号，已存在则跳过
		userRepo := repository.NewMySQLUserRepository(db.DB)
		existing, err := userRepo.GetUserByUsername(seedManagerUsername)
		if err != nil {
			log.Fatalf("查询管理员账号失败: %v", err)
		}
		if existing != nil {
			fmt.Printf("管理员账号 %s 已存在，跳过\n", seedManagerUsername)
			return
		}

		hash, err := auth.HashPassword(seedManagerPassword)
		if err != nil {
			log.Fatalf("生成密码哈希失败: %v", err)
		}
		id, err := userRepo.CreateUser(&model.User{
			Username:     seedManagerUsername,
			Email:        seedManagerEmail,
			PasswordHash: hash,
			IsManager:    true,
		})
		if err != nil {
			log.Fatalf("创建管理员账号失败: %v", err)
		}
		fmt.Printf("管理员账号已创建: %s (id=%d)，请尽快修改默认密码\n", seedManagerUsername, id)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedManagerUsername, "manager-username", "manager", "默认管理员用户名")
	seedCmd.Flags().StringVar(&seedManagerEmail, "manager-email", "manager@example.com", "默认管理员邮箱")
	seedCmd.Flags().StringVar(&seedManagerPassword, "manager-password", "changeme", "默认管理员密码")
}
