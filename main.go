package main

import (
	"github.com/physhub/physhub/config"
	"github.com/physhub/physhub/models"
	"github.com/physhub/physhub/routes"
	"github.com/physhub/physhub/storage"
	"github.com/physhub/physhub/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.ForumPost{},
		&models.Reply{},
		&models.Attachment{},
		&models.Resource{},
		&models.ResourceLike{},
		&models.ReplyLike{},
		&models.ReviewRecord{},
		&models.PageView{},
	)

	assets := storage.NewAssetStore(cfg.AssetRoot, cfg.AssetLegacyRoots...)
	assets.SetMaxSize(int64(cfg.AssetMaxSizeMB) * 1024 * 1024)

	r := routes.SetupRouter(db, assets)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
