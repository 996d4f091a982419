package endpoint

import (
	"github.com/ariebrainware/hospital-desk/config"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
)

// Index godoc
// @Summary      Service banner
// @Tags         Public
// @Produce      json
// @Success      200 {object} util.APIResponse "Service is running"
// @Router       / [get]
func Index(c *gin.Context) {
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Welcome to " + config.LoadConfig().AppName,
		Data: map[string]string{"status": "ok"},
	})
}

// ListDepartments godoc
// @Summary      Department catalogue
// @Tags         Public
// @Produce      json
// @Success      200 {object} util.APIResponse{data=[]string} "Departments"
// @Router       /departments [get]
func ListDepartments(c *gin.Context) {
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Departments retrieved", Data: model.Departments})
}
