package model

import "gorm.io/gorm"

type Patient struct {
	gorm.Model
	PatientCode string `json:"patient_code" gorm:"type:varchar(6);uniqueIndex;not null" example:"482913"`
	Name        string `json:"name" gorm:"type:varchar(191);not null" example:"Ram Bahadur"`
	Address     string `json:"address" example:"Kathmandu"`
	Phone       string `json:"phone" gorm:"type:varchar(20)" example:"9779812345678"`
	NationalID  string `json:"national_id" example:"12-34-56"`
	Age         int    `json:"age" example:"42"`
	Sex         string `json:"sex" gorm:"type:varchar(10)" example:"Male"`
	Email       string `json:"email" example:"ram@gmail.com"`
}
