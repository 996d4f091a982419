package model

import "gorm.io/gorm"

// AllModels lists every table the service owns, in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Role{},
		&User{},
		&Session{},
		&Patient{},
		&Appointment{},
		&Admission{},
		&Bill{},
		&Prescription{},
		&Preference{},
		&SecurityLog{},
	}
}

// Migrate creates or updates all tables and seeds the roles.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return err
	}
	return SeedRoles(db)
}
