package activity

import (
	"fmt"

	"hemolife-backend/internal/database"
	"hemolife-backend/internal/models"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.ActivityAction
	Description string
}

func WriteLog(opts LogOptions) error {
	entry := models.ActivityLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("não foi possível gravar o log de atividade: %w", err)
	}

	return nil
}
