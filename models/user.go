package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"gorm.io/gorm"
)

// User is a shopkeeper account. The user's ID doubles as the tenant key on
// every domain row.
type User struct {
	ID       int    `gorm:"primary_key" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Email    string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	Password string `gorm:"size:100;not null" json:"-"`
	Phone    string `gorm:"size:20" json:"phone"`

	ShopName      string `gorm:"size:100" json:"shop_name"`
	ShopAddress   string `gorm:"size:255" json:"shop_address"`
	Signature     string `gorm:"type:text" json:"signature"`
	SignatureName string `gorm:"size:100" json:"signature_name"`

	Role     UserRole `gorm:"type:enum('admin','shopkeeper');default:'shopkeeper'" json:"role"`
	IsActive *bool    `gorm:"not null;default:true" json:"is_active"`

	RefreshToken   string     `gorm:"size:500" json:"-"`
	ResetOTP       string     `gorm:"size:10" json:"-"`
	ResetOTPExpiry *time.Time `json:"-"`

	FeatureWholesalers     *bool `gorm:"not null;default:true" json:"feature_wholesalers"`
	FeatureDueCustomers    *bool `gorm:"not null;default:true" json:"feature_due_customers"`
	FeatureNormalCustomers *bool `gorm:"not null;default:true" json:"feature_normal_customers"`
	FeatureBilling         *bool `gorm:"not null;default:true" json:"feature_billing"`
	FeatureReports         *bool `gorm:"not null;default:true" json:"feature_reports"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func userCacheKey(id int) string {
	return fmt.Sprintf("User:%d", id)
}

// CachedUser loads a user through the Redis session cache, falling back to
// the database on a miss. Admin mutations that affect a session must call
// InvalidateUserCache.
func CachedUser(ctx context.Context, id int) (*User, error) {
	var user User
	if found, err := config.GetRedisObject(userCacheKey(id), &user); err == nil && found {
		return &user, nil
	}

	fetched, err := utils.FetchSingleModel[User](ctx, id)
	if err != nil {
		return nil, err
	}
	_ = config.SetRedisObject(userCacheKey(id), fetched, 15*time.Minute)
	return fetched, nil
}

func InvalidateUserCache(id int) {
	_ = config.RemoveRedisKey(userCacheKey(id))
}

// HasFeature reports whether a feature toggle is on. Admins bypass toggles.
func (user *User) HasFeature(name string) bool {
	if user.Role == UserRoleAdmin {
		return true
	}
	var flag *bool
	switch name {
	case "wholesalers":
		flag = user.FeatureWholesalers
	case "due_customers":
		flag = user.FeatureDueCustomers
	case "normal_customers":
		flag = user.FeatureNormalCustomers
	case "billing":
		flag = user.FeatureBilling
	case "reports":
		flag = user.FeatureReports
	default:
		return false
	}
	return flag != nil && *flag
}

type NewUser struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	Phone       string `json:"phone"`
	ShopName    string `json:"shop_name" binding:"required"`
	ShopAddress string `json:"shop_address"`
}

func (input *NewUser) validate() error {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	return nil
}

func SignUp(ctx context.Context, input *NewUser) (*User, error) {
	db := config.GetDB()

	if err := input.validate(); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := User{
		Name:        input.Name,
		Email:       input.Email,
		Password:    string(hashed),
		Phone:       input.Phone,
		ShopName:    input.ShopName,
		ShopAddress: input.ShopAddress,
		Role:        UserRoleShopkeeper,
		IsActive:    utils.NewTrue(),

		FeatureWholesalers:     utils.NewTrue(),
		FeatureDueCustomers:    utils.NewTrue(),
		FeatureNormalCustomers: utils.NewTrue(),
		FeatureBilling:         utils.NewTrue(),
		FeatureReports:         utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, errors.New("email already registered")
		}
		return nil, err
	}
	return &user, nil
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignIn verifies credentials and issues an access/refresh token pair. The
// refresh token is stored so it can be rotated and revoked.
func SignIn(ctx context.Context, email, password string) (*User, *AuthTokens, error) {
	db := config.GetDB()

	email = strings.ToLower(strings.TrimSpace(email))

	var user User
	err := db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if err != nil {
		return nil, nil, errors.New("invalid email or password")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, nil, errors.New("account is deactivated")
	}
	if err := utils.ComparePassword(user.Password, password); err != nil {
		return nil, nil, errors.New("invalid email or password")
	}

	tokens, err := issueTokens(ctx, &user)
	if err != nil {
		return nil, nil, err
	}
	return &user, tokens, nil
}

func issueTokens(ctx context.Context, user *User) (*AuthTokens, error) {
	db := config.GetDB()

	accessToken, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	refreshToken, err := utils.JwtGenerateRefresh(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(user).Update("RefreshToken", refreshToken).Error; err != nil {
		return nil, err
	}
	user.RefreshToken = refreshToken
	InvalidateUserCache(user.ID)

	return &AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// RefreshSession rotates the token pair. The presented refresh token must
// match the stored one; a mismatch means the token was already rotated or
// revoked.
func RefreshSession(ctx context.Context, refreshToken string) (*User, *AuthTokens, error) {
	token, err := utils.JwtValidateRefresh(refreshToken)
	if err != nil || !token.Valid {
		return nil, nil, errors.New("invalid refresh token")
	}
	claims, ok := token.Claims.(*utils.JwtCustomClaim)
	if !ok {
		return nil, nil, errors.New("invalid refresh token")
	}

	user, err := utils.FetchSingleModel[User](ctx, claims.ID)
	if err != nil {
		return nil, nil, errors.New("invalid refresh token")
	}
	if user.RefreshToken != refreshToken {
		return nil, nil, errors.New("refresh token has been revoked")
	}
	if user.IsActive == nil || !*user.IsActive {
		return nil, nil, errors.New("account is deactivated")
	}

	tokens, err := issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func SignOut(ctx context.Context, userId int) error {
	db := config.GetDB()

	err := db.WithContext(ctx).Model(&User{}).Where("id = ?", userId).
		Update("RefreshToken", "").Error
	if err != nil {
		return err
	}
	InvalidateUserCache(userId)
	return nil
}

func ChangePassword(ctx context.Context, userId int, currentPassword, newPassword string) error {
	db := config.GetDB()

	user, err := utils.FetchSingleModel[User](ctx, userId)
	if err != nil {
		return err
	}
	if err := utils.ComparePassword(user.Password, currentPassword); err != nil {
		return errors.New("current password is incorrect")
	}
	if len(newPassword) < 6 {
		return errors.New("password must be at least 6 characters")
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	// Changing the password also revokes the refresh token.
	err = db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"Password":     string(hashed),
		"RefreshToken": "",
	}).Error
	if err != nil {
		return err
	}
	InvalidateUserCache(userId)
	return nil
}

// ForgotPassword issues a six-digit OTP valid for ten minutes. The OTP is
// returned for delivery; whether the account exists is not revealed to the
// caller of the endpoint.
func ForgotPassword(ctx context.Context, email string) (string, error) {
	db := config.GetDB()

	email = strings.ToLower(strings.TrimSpace(email))

	var user User
	if err := db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		return "", utils.ErrorRecordNotFound
	}

	otp := utils.GenerateOTP()
	expiry := time.Now().Add(10 * time.Minute)
	err := db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"ResetOTP":       otp,
		"ResetOTPExpiry": &expiry,
	}).Error
	if err != nil {
		return "", err
	}
	return otp, nil
}

func ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	db := config.GetDB()

	email = strings.ToLower(strings.TrimSpace(email))

	var user User
	if err := db.WithContext(ctx).Where("email = ?", email).Take(&user).Error; err != nil {
		return errors.New("invalid or expired OTP")
	}
	if user.ResetOTP == "" || user.ResetOTP != otp {
		return errors.New("invalid or expired OTP")
	}
	if user.ResetOTPExpiry == nil || time.Now().After(*user.ResetOTPExpiry) {
		return errors.New("invalid or expired OTP")
	}
	if len(newPassword) < 6 {
		return errors.New("password must be at least 6 characters")
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
		"Password":       string(hashed),
		"RefreshToken":   "",
		"ResetOTP":       "",
		"ResetOTPExpiry": gorm.Expr("NULL"),
	}).Error
	if err != nil {
		return err
	}
	InvalidateUserCache(user.ID)
	return nil
}

type UpdateProfileInput struct {
	Name          *string `json:"name"`
	Phone         *string `json:"phone"`
	ShopName      *string `json:"shop_name"`
	ShopAddress   *string `json:"shop_address"`
	Signature     *string `json:"signature"`
	SignatureName *string `json:"signature_name"`
}

func UpdateProfile(ctx context.Context, userId int, input *UpdateProfileInput) (*User, error) {
	db := config.GetDB()

	user, err := utils.FetchSingleModel[User](ctx, userId)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["Name"] = *input.Name
	}
	if input.Phone != nil {
		if *input.Phone != "" {
			if err := utils.ValidatePhoneNumber(*input.Phone, utils.CountryCode); err != nil {
				return nil, errors.New("invalid phone number")
			}
		}
		updates["Phone"] = *input.Phone
	}
	if input.ShopName != nil {
		updates["ShopName"] = *input.ShopName
	}
	if input.ShopAddress != nil {
		updates["ShopAddress"] = *input.ShopAddress
	}
	if input.Signature != nil {
		updates["Signature"] = *input.Signature
	}
	if input.SignatureName != nil {
		updates["SignatureName"] = *input.SignatureName
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	InvalidateUserCache(userId)
	return utils.FetchSingleModel[User](ctx, userId)
}

type UserFilter struct {
	Search     string
	IsActive   *bool
	Pagination PaginationParams
}

// GetUsers lists shopkeeper accounts. Admin only; the handler gates on role.
func GetUsers(ctx context.Context, filter UserFilter) ([]*User, Pagination, error) {
	db := config.GetDB()

	dbCtx := db.WithContext(ctx).Model(&User{}).Where("role = ?", UserRoleShopkeeper)
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		dbCtx = dbCtx.Where("name LIKE ? OR email LIKE ? OR shop_name LIKE ?", pattern, pattern, pattern)
	}
	if filter.IsActive != nil {
		dbCtx = dbCtx.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var users []*User
	err := dbCtx.Order("created_at DESC").
		Offset(filter.Pagination.Offset()).Limit(filter.Pagination.Limit).
		Find(&users).Error
	if err != nil {
		return nil, Pagination{}, err
	}
	return users, NewPagination(filter.Pagination, total), nil
}

// GetShopkeeper returns a single shopkeeper account. Admin accounts are not
// reachable through this lookup.
func GetShopkeeper(ctx context.Context, userId int) (*User, error) {
	db := config.GetDB()

	var user User
	err := db.WithContext(ctx).Where("role = ?", UserRoleShopkeeper).Take(&user, userId).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

type UpdateShopkeeperInput struct {
	Name        *string `json:"name"`
	Phone       *string `json:"phone"`
	ShopName    *string `json:"shop_name"`
	ShopAddress *string `json:"shop_address"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateShopkeeper applies an admin edit to a shopkeeper account. Setting
// IsActive to false also revokes the refresh token.
func UpdateShopkeeper(ctx context.Context, userId int, input *UpdateShopkeeperInput) (*User, error) {
	db := config.GetDB()

	user, err := GetShopkeeper(ctx, userId)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["Name"] = *input.Name
	}
	if input.Phone != nil {
		if *input.Phone != "" {
			if err := utils.ValidatePhoneNumber(*input.Phone, utils.CountryCode); err != nil {
				return nil, errors.New("invalid phone number")
			}
		}
		updates["Phone"] = *input.Phone
	}
	if input.ShopName != nil {
		updates["ShopName"] = *input.ShopName
	}
	if input.ShopAddress != nil {
		updates["ShopAddress"] = *input.ShopAddress
	}
	if input.IsActive != nil {
		updates["IsActive"] = *input.IsActive
		if !*input.IsActive {
			updates["RefreshToken"] = ""
		}
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	InvalidateUserCache(userId)
	return GetShopkeeper(ctx, userId)
}

// DeleteShopkeeper removes a shopkeeper account. The account's domain rows
// keep their shopkeeper_id and become unreachable once the login is gone.
func DeleteShopkeeper(ctx context.Context, userId int) error {
	db := config.GetDB()

	result := db.WithContext(ctx).Where("role = ?", UserRoleShopkeeper).Delete(&User{}, userId)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	InvalidateUserCache(userId)
	return nil
}

// ToggleUserStatus activates or deactivates a shopkeeper account.
// Deactivation revokes the refresh token so existing sessions die on their
// next refresh.
func ToggleUserStatus(ctx context.Context, userId int) (*User, error) {
	db := config.GetDB()

	user, err := utils.FetchSingleModel[User](ctx, userId)
	if err != nil {
		return nil, err
	}
	if user.Role == UserRoleAdmin {
		return nil, errors.New("cannot deactivate an admin account")
	}

	newStatus := user.IsActive == nil || !*user.IsActive
	updates := map[string]interface{}{"IsActive": newStatus}
	if !newStatus {
		updates["RefreshToken"] = ""
	}
	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	InvalidateUserCache(userId)
	return utils.FetchSingleModel[User](ctx, userId)
}

type UpdateFeaturesInput struct {
	Wholesalers     *bool `json:"wholesalers"`
	DueCustomers    *bool `json:"due_customers"`
	NormalCustomers *bool `json:"normal_customers"`
	Billing         *bool `json:"billing"`
	Reports         *bool `json:"reports"`
}

func UpdateUserFeatures(ctx context.Context, userId int, input *UpdateFeaturesInput) (*User, error) {
	db := config.GetDB()

	user, err := utils.FetchSingleModel[User](ctx, userId)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Wholesalers != nil {
		updates["FeatureWholesalers"] = *input.Wholesalers
	}
	if input.DueCustomers != nil {
		updates["FeatureDueCustomers"] = *input.DueCustomers
	}
	if input.NormalCustomers != nil {
		updates["FeatureNormalCustomers"] = *input.NormalCustomers
	}
	if input.Billing != nil {
		updates["FeatureBilling"] = *input.Billing
	}
	if input.Reports != nil {
		updates["FeatureReports"] = *input.Reports
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	InvalidateUserCache(userId)
	return utils.FetchSingleModel[User](ctx, userId)
}

type UserStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	ActiveUsers   int64 `json:"activeUsers"`
	InactiveUsers int64 `json:"inactiveUsers"`
}

func GetUserStats(ctx context.Context) (*UserStats, error) {
	db := config.GetDB()

	var stats UserStats
	err := db.WithContext(ctx).Model(&User{}).
		Select(`COUNT(*) AS total_users,
			COUNT(CASE WHEN is_active = true THEN 1 END) AS active_users,
			COUNT(CASE WHEN is_active = false THEN 1 END) AS inactive_users`).
		Where("role = ?", UserRoleShopkeeper).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
