package main

import (
	"testing"

	"github.com/ariebrainware/hospital-desk/config"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	t.Setenv("APPENV", "test")
	config.ResetConfigForTest()
	db, err := config.ConnectDatabase()
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestSeedAdmin(t *testing.T) {
	db := setupSeedDB(t)

	user, err := seedAdmin(db, adminSeed{Username: " admin ", Password: "longenough", Email: "admin@example.com", Name: "Head  Admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, "Head Admin", user.Name)
	assert.Equal(t, model.RoleAdmin, user.RoleID)
	assert.True(t, user.RequiresPassword)
	assert.NotEqual(t, "longenough", user.Password)

	var stored model.User
	require.NoError(t, db.Where("username = ?", "admin").First(&stored).Error)
	ok, err := util.VerifyPassword("longenough", stored.Password, stored.PasswordSalt)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = seedAdmin(db, adminSeed{Username: "admin", Password: "longenough", Email: "other@example.com"})
	assert.ErrorIs(t, err, errAdminExists)
}

func TestSeedAdmin_Validation(t *testing.T) {
	db := setupSeedDB(t)

	tests := []struct {
		name string
		seed adminSeed
	}{
		{"missing username", adminSeed{Password: "longenough", Email: "a@example.com"}},
		{"short password", adminSeed{Username: "admin", Password: "short", Email: "a@example.com"}},
		{"bad email", adminSeed{Username: "admin", Password: "longenough", Email: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := seedAdmin(db, tt.seed)
			assert.Error(t, err)
		})
	}

	var count int64
	db.Model(&model.User{}).Count(&count)
	assert.Zero(t, count)
}
