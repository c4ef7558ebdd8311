package main

import (
	"github.com/classboard/classboard/config"
	"github.com/classboard/classboard/models"
	"github.com/classboard/classboard/routes"
	"github.com/classboard/classboard/services"
	"github.com/classboard/classboard/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	utils.RegisterValidators()

	db := config.InitDatabase(
		&models.User{},
		&models.Post{},
		&models.Tag{},
		&models.PostTag{},
		&models.Like{},
		&models.View{},
		&models.Comment{},
		&models.CommentLike{},
	)

	deleter := services.NewDeleter(services.NewGormStore(db), utils.Sugar)
	r := routes.SetupRouter(db, deleter)

	utils.Sugar.Infof("starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
