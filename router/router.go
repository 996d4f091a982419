// Package router wires every HTTP route of the front desk API.
package router

import (
	"github.com/ariebrainware/hospital-desk/endpoint"
	"github.com/ariebrainware/hospital-desk/middleware"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Options tunes the router. The zero value uses the default rate limits.
type Options struct {
	AuthRateLimit middleware.RateLimitConfig
}

// SetupRouter returns an engine with every route group registered against db.
func SetupRouter(db *gorm.DB, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.DatabaseMiddleware(db))
	r.Use(middleware.EndpointCallLogger())

	authLimit := middleware.RateLimiter(opts.AuthRateLimit)

	r.GET("/", endpoint.Index)
	r.GET("/departments", endpoint.ListDepartments)
	r.GET("/captcha", endpoint.GetCaptcha)
	r.POST("/login", authLimit, endpoint.Login)
	r.POST("/register", authLimit, endpoint.Register)
	r.POST("/password/forgot", authLimit, endpoint.ForgotPassword)
	r.GET("/preferences/:device_id", endpoint.GetPreferences)
	r.PUT("/preferences/:device_id", endpoint.PutPreferences)

	auth := r.Group("/")
	auth.Use(middleware.ValidateLoginToken())
	{
		auth.DELETE("/logout", endpoint.Logout)
		auth.GET("/token/validate", endpoint.ValidateToken)
		auth.PATCH("/user/password", endpoint.ChangePassword)
	}

	admin := auth.Group("/")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	{
		admin.POST("/user", endpoint.CreateUser)
		admin.GET("/user", endpoint.ListUsers)
		admin.GET("/user/:id", endpoint.GetUser)
		admin.PATCH("/user/:id", endpoint.UpdateUser)
		admin.DELETE("/user/:id", endpoint.DeleteUser)
		admin.PATCH("/user/:id/toggle-active", endpoint.ToggleActive)
		admin.GET("/staff", endpoint.ListStaff)
		admin.GET("/doctors", endpoint.ListDoctors)
	}

	desk := auth.Group("/")
	desk.Use(middleware.RequireRole(model.RoleStaff, model.RoleAdmin))
	{
		desk.POST("/patient", endpoint.CreatePatient)
		desk.GET("/patient", endpoint.ListPatients)
		desk.GET("/patient/:code", endpoint.GetPatient)
		desk.PATCH("/patient/:code", endpoint.UpdatePatient)
		desk.DELETE("/patient/:code", endpoint.DeletePatient)

		desk.GET("/doctors/by-department", endpoint.DoctorsByDepartment)

		desk.POST("/appointment", endpoint.BookAppointment)
		desk.GET("/appointment", endpoint.ListAppointments)
		desk.PATCH("/appointment/:id/reschedule", endpoint.RescheduleAppointment)
		desk.DELETE("/appointment/:id", endpoint.DeleteAppointment)

		desk.POST("/admission", endpoint.AdmitPatient)
		desk.GET("/admission", endpoint.ListAdmissions)
		desk.PATCH("/admission/:id", endpoint.UpdateAdmission)
		desk.PATCH("/admission/:id/discharge", endpoint.DischargePatient)
		desk.DELETE("/admission/:id", endpoint.DeleteAdmission)

		desk.GET("/bill/next-invoice", endpoint.NextInvoice)
		desk.POST("/bill", endpoint.CreateBill)
		desk.GET("/bill", endpoint.ListBills)
	}

	doctor := auth.Group("/")
	doctor.Use(middleware.RequireRole(model.RoleDoctor))
	{
		doctor.GET("/doctor/appointments", endpoint.DoctorAppointments)
		doctor.POST("/appointment/:id/prescription", endpoint.WritePrescription)
	}

	auth.GET("/patient/:code/history", middleware.RequireRole(model.RoleDoctor, model.RoleAdmin), endpoint.PatientHistory)

	return r
}
