package models

// GetAllModels returns all models for GORM AutoMigrate
func GetAllModels() []interface{} {
	return []interface{}{
		&Tenant{},
		&User{},
		&Credential{},
		&PipelineStage{},
		&Contact{},
		&Lead{},
		&Message{},
		&Task{},
		&LeadSource{},
		&WhatsAppWorkspace{},
	}
}
