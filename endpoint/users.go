package endpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ariebrainware/hospital-desk/middleware"
	"github.com/ariebrainware/hospital-desk/model"
	"github.com/ariebrainware/hospital-desk/notification"
	"github.com/ariebrainware/hospital-desk/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Sentinel errors for user validation
var (
	ErrNameRequired       = errors.New("name is required")
	ErrAddressRequired    = errors.New("address is required")
	ErrEmailRequired      = errors.New("email is required")
	ErrUsernameRequired   = errors.New("username is required")
	ErrDepartmentRequired = errors.New("department is required for doctors")
	ErrUnknownDepartment  = errors.New("unknown department")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrSelfModification   = errors.New("admins cannot delete or deactivate their own account")
)

// userForm is the validated shape shared by admin user creation, self
// registration and admin updates.
type userForm struct {
	Name       string
	Address    string
	Phone      string
	Email      string
	Username   string
	RoleID     uint32
	NMCNumber  string
	Department string
}

// validate checks the form and returns the phone with its country prefix.
func (f *userForm) validate() (string, error) {
	f.Name = util.NormalizeName(f.Name)
	f.Address = strings.TrimSpace(f.Address)
	f.Email = strings.TrimSpace(f.Email)
	f.Username = strings.TrimSpace(f.Username)
	f.NMCNumber = strings.TrimSpace(f.NMCNumber)
	f.Department = strings.TrimSpace(f.Department)

	switch {
	case f.Name == "":
		return "", ErrNameRequired
	case f.Address == "":
		return "", ErrAddressRequired
	case f.Email == "":
		return "", ErrEmailRequired
	case f.Username == "":
		return "", ErrUsernameRequired
	}
	phone, err := util.NormalizePhone(strings.TrimSpace(f.Phone))
	if err != nil {
		return "", err
	}
	if err := util.ValidateEmail(f.Email); err != nil {
		return "", err
	}
	if f.RoleID == model.RoleDoctor {
		if err := util.ValidateNMC(f.NMCNumber); err != nil {
			return "", err
		}
		if f.Department == "" {
			return "", ErrDepartmentRequired
		}
		if !model.IsDepartment(f.Department) {
			return "", ErrUnknownDepartment
		}
	}
	return phone, nil
}

// apply copies the form onto user. NMC and department are kept for doctors only.
func (f userForm) apply(user *model.User, phone string) {
	user.Name = f.Name
	user.Address = f.Address
	user.Phone = phone
	user.Email = f.Email
	user.Username = f.Username
	user.RoleID = f.RoleID
	user.Role = model.RoleName(f.RoleID)
	user.NMCNumber = nil
	user.Department = nil
	if f.RoleID == model.RoleDoctor {
		nmc, dept := f.NMCNumber, f.Department
		user.NMCNumber = &nmc
		user.Department = &dept
	}
}

// ensureUnique rejects a username or email held by another user. Soft
// deleted rows still own their unique keys, so they are counted too.
func ensureUnique(db *gorm.DB, username, email string, excludeID uint) error {
	var count int64
	if err := db.Unscoped().Model(&model.User{}).Where("username = ? AND id <> ?", username, excludeID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUsernameTaken
	}
	if err := db.Unscoped().Model(&model.User{}).Where("email = ? AND id <> ?", email, excludeID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return nil
}

func isUserInputError(err error) bool {
	for _, target := range []error{
		ErrNameRequired, ErrAddressRequired, ErrEmailRequired, ErrUsernameRequired,
		ErrDepartmentRequired, ErrUnknownDepartment, ErrUsernameTaken, ErrEmailTaken,
		util.ErrInvalidPhone, util.ErrInvalidEmail, util.ErrInvalidNMC,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func respondUserFormError(c *gin.Context, err error) {
	if isUserInputError(err) {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	util.CallServerError(c, util.APIErrorParams{Msg: "Failed to save user", Err: err})
}

// createUserFromForm validates the form, generates a password and inserts the
// user. The plain password is returned so the caller can deliver it.
func createUserFromForm(c *gin.Context, db *gorm.DB, form userForm) (model.User, string, bool) {
	phone, err := form.validate()
	if err != nil {
		respondUserFormError(c, err)
		return model.User{}, "", false
	}
	if err := ensureUnique(db, form.Username, form.Email, 0); err != nil {
		respondUserFormError(c, err)
		return model.User{}, "", false
	}

	password := util.GeneratePassword()
	hash, salt, err := util.NewPasswordHash(password)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return model.User{}, "", false
	}

	user := model.User{Password: hash, PasswordSalt: salt, IsActive: true, RequiresPassword: true}
	form.apply(&user, phone)
	if err := db.Create(&user).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create new user", Err: err})
		return model.User{}, "", false
	}
	return user, password, true
}

func summarizeUser(u model.User) model.UserSummary {
	return model.UserSummary{ID: u.ID, Name: u.Name, Role: u.Role, Username: u.Username, Phone: u.Phone, Email: u.Email, IsActive: u.IsActive}
}

type CreateUserRequest struct {
	Name       string `json:"name" binding:"required" example:"Hari Thapa"`
	Address    string `json:"address" binding:"required" example:"Bhaktapur"`
	Phone      string `json:"phone" binding:"required" example:"9801234567"`
	Email      string `json:"email" binding:"required" example:"hari.thapa@example.com"`
	Username   string `json:"username" binding:"required" example:"hari"`
	Role       string `json:"role" binding:"required" example:"staff"`
	NMCNumber  string `json:"nmc_number" example:"A1234"`
	Department string `json:"department" example:"Neurology"`
}

type CreateUserResponse struct {
	User     model.UserSummary `json:"user"`
	Password string            `json:"password" example:"1f9a7c2e"`
}

// CreateUser godoc
// @Summary      Create user (admin only)
// @Description  Create an admin, doctor or staff account. The generated password is emailed and returned once.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body CreateUserRequest true "User details"
// @Success      200 {object} util.APIResponse{data=CreateUserResponse} "User created"
// @Failure      400 {object} util.APIResponse "Validation error"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user [post]
func CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	roleID, valid := model.RoleIDFromName(req.Role)
	if !valid {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid role", Err: fmt.Errorf("unknown role %q", req.Role)})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	user, password, ok := createUserFromForm(c, db, userForm{
		Name:       req.Name,
		Address:    req.Address,
		Phone:      req.Phone,
		Email:      req.Email,
		Username:   req.Username,
		RoleID:     roleID,
		NMCNumber:  req.NMCNumber,
		Department: req.Department,
	})
	if !ok {
		return
	}

	notification.Send(notification.Credentials(user.Email, user.Name, user.Username, password))
	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "User created successfully",
		Data: CreateUserResponse{User: summarizeUser(user), Password: password},
	})
}

// ListUsers godoc
// @Summary      List all users (admin only)
// @Description  Get a paginated list of users using cursor-based pagination
// @Tags         Admin
// @Produce      json
// @Security     SessionToken
// @Param        limit query int false "Limit number of results (default 10, max 100)"
// @Param        cursor query int false "Cursor for pagination (User ID)"
// @Param        keyword query string false "Search keyword for name, username or email"
// @Success      200 {object} util.APIResponse{data=object} "Users retrieved with cursor pagination"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user [get]
func ListUsers(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	limit := parsePositiveInt(c.Query("limit"), 10, 100)
	cursor := parseUintQuery(c, "cursor")

	query := db.Model(&model.User{})
	if keyword := strings.TrimSpace(c.Query("keyword")); keyword != "" {
		kw := likePattern(keyword)
		query = query.Where("name LIKE ? OR username LIKE ? OR email LIKE ?", kw, kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count users", Err: err})
		return
	}

	if cursor > 0 {
		query = query.Where("id > ?", cursor)
	}
	// One extra row tells us whether another page exists.
	var users []model.UserSummary
	if err := query.Select("id, name, role, username, phone, email, is_active").Order("id ASC").Limit(limit + 1).Scan(&users).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve users", Err: err})
		return
	}

	hasMore := len(users) > limit
	var nextCursor *uint
	if hasMore {
		users = users[:limit]
		lastID := users[len(users)-1].ID
		nextCursor = &lastID
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Users retrieved",
		Data: map[string]interface{}{
			"users":         users,
			"total":         total,
			"total_fetched": len(users),
			"has_more":      hasMore,
			"next_cursor":   nextCursor,
		},
	})
}

// GetUser godoc
// @Summary      Get user (admin only)
// @Tags         Admin
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Success      200 {object} util.APIResponse{data=model.User} "User retrieved"
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /user/{id} [get]
func GetUser(c *gin.Context) {
	id, ok := idParamOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var user model.User
	if !findOrRespond(c, db.Where("id = ?", id), &user, "User not found") {
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User retrieved", Data: user})
}

// UpdateUserRequest only touches the fields that are present.
type UpdateUserRequest struct {
	Name       *string `json:"name" example:"Hari Thapa"`
	Address    *string `json:"address" example:"Bhaktapur"`
	Phone      *string `json:"phone" example:"9801234567"`
	Email      *string `json:"email" example:"hari.thapa@example.com"`
	Username   *string `json:"username" example:"hari"`
	Role       *string `json:"role" example:"doctor"`
	NMCNumber  *string `json:"nmc_number" example:"A1234"`
	Department *string `json:"department" example:"Neurology"`
}

// mergeUpdate builds a full form from the stored user overlaid with req.
func mergeUpdate(user model.User, req UpdateUserRequest) (userForm, error) {
	form := userForm{
		Name:     user.Name,
		Address:  user.Address,
		Phone:    strings.TrimPrefix(user.Phone, util.PhonePrefix),
		Email:    user.Email,
		Username: user.Username,
		RoleID:   user.RoleID,
	}
	if user.NMCNumber != nil {
		form.NMCNumber = *user.NMCNumber
	}
	if user.Department != nil {
		form.Department = *user.Department
	}

	for dst, src := range map[*string]*string{
		&form.Name:       req.Name,
		&form.Address:    req.Address,
		&form.Phone:      req.Phone,
		&form.Email:      req.Email,
		&form.Username:   req.Username,
		&form.NMCNumber:  req.NMCNumber,
		&form.Department: req.Department,
	} {
		if src != nil {
			*dst = *src
		}
	}
	if req.Role != nil {
		roleID, ok := model.RoleIDFromName(*req.Role)
		if !ok {
			return userForm{}, fmt.Errorf("unknown role %q", *req.Role)
		}
		form.RoleID = roleID
	}
	return form, nil
}

// UpdateUser godoc
// @Summary      Update user (admin only)
// @Description  Update any subset of a user's details. The same validation as creation applies.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Param        request body UpdateUserRequest true "Fields to change"
// @Success      200 {object} util.APIResponse{data=model.User} "User updated"
// @Failure      400 {object} util.APIResponse "Validation error"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user/{id} [patch]
func UpdateUser(c *gin.Context) {
	id, ok := idParamOrRespond(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var user model.User
	if !findOrRespond(c, db.Where("id = ?", id), &user, "User not found") {
		return
	}

	form, err := mergeUpdate(user, req)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid role", Err: err})
		return
	}
	phone, err := form.validate()
	if err != nil {
		respondUserFormError(c, err)
		return
	}
	if err := ensureUnique(db, form.Username, form.Email, user.ID); err != nil {
		respondUserFormError(c, err)
		return
	}

	roleChanged := form.RoleID != user.RoleID
	form.apply(&user, phone)
	err = db.Model(&user).Select("name", "address", "phone", "email", "username", "role_id", "role", "nmc_number", "department").Updates(&user).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update user", Err: err})
		return
	}
	util.ForgetUserEmail(user.ID)
	if roleChanged {
		invalidateUserSessions(c, db, user.ID)
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User updated successfully", Data: user})
}

// DeleteUser godoc
// @Summary      Delete user (admin only)
// @Description  Permanently remove a user and every session they hold
// @Tags         Admin
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Success      200 {object} util.APIResponse "User deleted"
// @Failure      400 {object} util.APIResponse "Invalid id or own account"
// @Failure      404 {object} util.APIResponse "User not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /user/{id} [delete]
func DeleteUser(c *gin.Context) {
	id, ok := idParamOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	if self, _ := middleware.GetUserID(c); self == id {
		util.CallUserError(c, util.APIErrorParams{Msg: ErrSelfModification.Error(), Err: ErrSelfModification})
		return
	}

	var user model.User
	if !findOrRespond(c, db.Where("id = ?", id), &user, "User not found") {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", user.ID).Delete(&model.Session{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&user).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete user", Err: err})
		return
	}
	if err := util.InvalidateUserSessions(c.Request.Context(), user.ID); err != nil {
		util.SecurityLogger().Warn().Err(err).Uint("user_id", user.ID).Msg("failed to invalidate redis sessions")
	}
	util.ForgetUserEmail(user.ID)

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User deleted successfully"})
}

// ToggleActive godoc
// @Summary      Enable or disable a user (admin only)
// @Description  Flip is_active. Disabling a user signs them out everywhere.
// @Tags         Admin
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Success      200 {object} util.APIResponse{data=model.UserSummary} "Status changed"
// @Failure      400 {object} util.APIResponse "Invalid id or own account"
// @Failure      404 {object} util.APIResponse "User not found"
// @Router       /user/{id}/toggle-active [patch]
func ToggleActive(c *gin.Context) {
	id, ok := idParamOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	self, _ := middleware.GetUserID(c)
	if self == id {
		util.CallUserError(c, util.APIErrorParams{Msg: ErrSelfModification.Error(), Err: ErrSelfModification})
		return
	}

	var user model.User
	if !findOrRespond(c, db.Where("id = ?", id), &user, "User not found") {
		return
	}
	user.IsActive = !user.IsActive
	if err := db.Model(&user).Update("is_active", user.IsActive).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update status", Err: err})
		return
	}
	if !user.IsActive {
		invalidateUserSessions(c, db, user.ID)
	}

	status := "enabled"
	if !user.IsActive {
		status = "disabled"
	}
	util.LogSecurityEvent(util.SecurityEvent{
		EventType: util.EventAccountToggled,
		UserID:    fmt.Sprintf("%d", user.ID),
		Email:     user.Email,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Message:   fmt.Sprintf("Account %s by admin %d", status, self),
	})
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "User " + status, Data: summarizeUser(user)})
}

// ListStaff godoc
// @Summary      Staff directory (admin only)
// @Tags         Admin
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=[]model.StaffSummary} "Staff retrieved"
// @Router       /staff [get]
func ListStaff(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var staff []model.StaffSummary
	err := db.Model(&model.User{}).
		Select("id, name, phone, email, address, is_active").
		Where("role_id = ?", model.RoleStaff).
		Order("name ASC").
		Scan(&staff).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve staff", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Staff retrieved", Data: staff})
}

const doctorSummaryColumns = "id, name, COALESCE(nmc_number, '') AS nmc_number, COALESCE(department, '') AS department, phone, email, is_active"

// ListDoctors godoc
// @Summary      Doctor directory (admin only)
// @Tags         Admin
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=[]model.DoctorSummary} "Doctors retrieved"
// @Router       /doctors [get]
func ListDoctors(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var doctors []model.DoctorSummary
	err := db.Model(&model.User{}).
		Select(doctorSummaryColumns).
		Where("role_id = ?", model.RoleDoctor).
		Order("name ASC").
		Scan(&doctors).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: doctors})
}

// DoctorsByDepartment godoc
// @Summary      Active doctors of a department
// @Description  Used by the booking form to offer doctors of the chosen department
// @Tags         Staff
// @Produce      json
// @Security     SessionToken
// @Param        department query string true "Department name"
// @Success      200 {object} util.APIResponse{data=[]model.DoctorSummary} "Doctors retrieved"
// @Failure      400 {object} util.APIResponse "Unknown department"
// @Router       /doctors/by-department [get]
func DoctorsByDepartment(c *gin.Context) {
	department := strings.TrimSpace(c.Query("department"))
	if !model.IsDepartment(department) {
		util.CallUserError(c, util.APIErrorParams{Msg: "Unknown department", Err: ErrUnknownDepartment})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	var doctors []model.DoctorSummary
	err := db.Model(&model.User{}).
		Select(doctorSummaryColumns).
		Where("role_id = ? AND department = ? AND is_active = ?", model.RoleDoctor, department, true).
		Order("name ASC").
		Scan(&doctors).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve doctors", Err: err})
		return
	}
	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Doctors retrieved", Data: doctors})
}
