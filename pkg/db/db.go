package db

import (
	"fmt"
	"log"

	"secure-vault/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *gorm.DB

// 初始化数据库连接并迁移模式
func InitDB(dsn string) error {
	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// 自动迁移模式。顺序很重要：grants 的外键依赖 files 和 users。
	err = DB.AutoMigrate(
		&model.User{},
		&model.File{},
		&model.Grant{},
		&model.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("Database connected and migrated successfully")
	return nil
}
