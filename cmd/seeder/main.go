package main

import (
	"context"
	"fmt"
	"os"

	"github.com/quocanhngo/pricewatch/internal/config"
	"github.com/quocanhngo/pricewatch/internal/logger"
	"github.com/quocanhngo/pricewatch/internal/model"
	"github.com/quocanhngo/pricewatch/internal/repository"
	"github.com/quocanhngo/pricewatch/migrations"
	"github.com/quocanhngo/pricewatch/pkg/auth"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	opts := seedOptions{}
	pflag.IntVar(&opts.Users, "users", 5, "number of users to seed (user1..userN)")
	pflag.IntVar(&opts.AlertsPerUser, "alerts", 3, "price alerts per user")
	pflag.IntVar(&opts.DevicesPerUser, "devices", 1, "devices per user")
	pflag.BoolVar(&opts.AllCategories, "all-categories", false, "enable every notification category")
	tokenFor := pflag.String("token", "", "only print a JWT for this user id and exit")
	rollback := pflag.Bool("rollback", false, "revert the last schema migration and exit")
	pflag.Parse()

	cfg := config.Load()
	if err := logger.InitLogger(cfg.App.Env, cfg.App.LogLevel); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Log

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	if *tokenFor != "" {
		token, err := jwtManager.GenerateToken(*tokenFor)
		if err != nil {
			log.Fatal("failed to sign token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}

	if *rollback {
		if err := migrations.Rollback(cfg.DB.URL(), log); err != nil {
			log.Fatal("rollback failed", zap.Error(err))
		}
		return
	}

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := migrations.Run(cfg.DB.URL(), log); err != nil {
		log.Fatal("failed to migrate", zap.Error(err))
	}

	s := seeder{
		alerts:  repository.NewAlertRepository(db),
		devices: repository.NewDeviceRepository(db),
		prefs:   repository.NewPreferenceRepository(db),
		log:     log,
	}
	users, err := s.run(context.Background(), opts)
	if err != nil {
		log.Fatal("seeding failed", zap.Error(err))
	}

	for _, userID := range users {
		token, err := jwtManager.GenerateToken(userID)
		if err != nil {
			log.Fatal("failed to sign token", zap.Error(err))
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\n", userID, token)
	}
}

// seedSymbols rotates through tokens the static feed knows
var seedSymbols = []struct {
	symbol  string
	network model.Network
	target  float64
}{
	{"BTC", model.NetworkEthereum, 50000},
	{"ETH", model.NetworkEthereum, 3000},
	{"SOL", model.NetworkSolana, 100},
	{"LINK", model.NetworkEthereum, 20},
	{"AVAX", model.NetworkEthereum, 25},
}
