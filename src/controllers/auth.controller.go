package controllers

import (
	"context"
	"cws/src/db"
	"cws/src/lib"
	"cws/src/lib/mailer"
	"cws/src/models"
	"cws/src/types"
	"cws/src/utils"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthRegister creates a consumer account and mails a verification OTP.
func AuthRegister(ctx *gin.Context) (user *models.User, status int, err error) {
	var body types.RegisterUserRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}

	hashed, err := utils.HashPassword(body.Password)
	if err != nil {
		log.Printf("Error hashing password: %s\n", err.Error())
		return nil, http.StatusInternalServerError, errors.New("could not complete registration")
	}
	otp, otpExpiry := utils.GenerateOTP()

	newUser := models.User{
		Name:         body.Name,
		Email:        body.Email,
		Password:     hashed,
		Phone:        body.Phone,
		City:         body.City,
		Category:     types.NormalizeCategory(body.Category),
		Role:         types.ROLE_USER,
		IsActive:     true,
		OTP:          &otp,
		OTPExpiresAt: &otpExpiry,
	}
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.
			Model(&models.User{}).
			Where("email = ?", body.Email).
			Count(&count).
			Error; err != nil {
			return errors.New("could not complete transaction")
		}
		if count > 0 {
			return errors.New("user is already registered in the system. Please proceed to Log In")
		}
		if err := tx.Create(&newUser).Error; err != nil {
			log.Printf("Error creating user: %s\n", err.Error())
			return fmt.Errorf("error creating user: %s", body.Email)
		}
		return nil
	})
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	mailer.Dispatch(newUser.Email, "Verify your email",
		fmt.Sprintf("<p>Hi %s,</p><p>Your verification code is <b>%s</b>. It expires in 10 minutes.</p>", newUser.Name, otp))

	return &newUser, http.StatusCreated, nil
}

// AuthVerifyEmail checks the OTP and flips the verification flag.
func AuthVerifyEmail(ctx *gin.Context) (status int, err error) {
	var body types.VerifyEmailRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.
			Where(&models.User{Email: body.Email}).
			First(&user).
			Error; err != nil {
			return err
		}
		if user.EmailVerified {
			return nil
		}
		if user.OTP == nil || user.OTPExpiresAt == nil {
			return errors.New("no verification code was issued")
		}
		if time.Now().After(*user.OTPExpiresAt) {
			return errors.New("verification code has expired")
		}
		if *user.OTP != body.OTP {
			return errors.New("verification code does not match")
		}
		return tx.
			Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]any{
				"email_verified": true,
				"otp":            nil,
				"otp_expires_at": nil,
			}).
			Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return http.StatusNotFound, err
		}
		return http.StatusBadRequest, err
	}
	return http.StatusOK, nil
}

// AuthResendOTP reissues the verification code, at most once per minute per
// address. The throttle lives in redis so restarts do not reset it.
func AuthResendOTP(ctx *gin.Context) (status int, err error) {
	var body types.ResendOTPRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return http.StatusBadRequest, err
	}
	db := db.GetDb()
	var user models.User
	if err := db.
		Where(&models.User{Email: body.Email}).
		First(&user).
		Error; err != nil {
		return http.StatusNotFound, errors.New("no user account is associated with this email")
	}
	if user.EmailVerified {
		return http.StatusConflict, errors.New("email is already verified")
	}
	if rd := lib.GetRedisClient(); rd != nil {
		key := fmt.Sprintf("%d:otp:resend", user.ID)
		set, err := rd.SetNX(ctx, key, 1, time.Minute).Result()
		if err == nil && !set {
			return http.StatusTooManyRequests, errors.New("verification code was sent recently. Please wait before retrying")
		}
	}
	otp, otpExpiry := utils.GenerateOTP()
	if err := db.
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"otp":            otp,
			"otp_expires_at": otpExpiry,
		}).
		Error; err != nil {
		return http.StatusBadRequest, err
	}
	mailer.Dispatch(user.Email, "Verify your email",
		fmt.Sprintf("<p>Hi %s,</p><p>Your verification code is <b>%s</b>. It expires in 10 minutes.</p>", user.Name, otp))
	return http.StatusOK, nil
}

// AuthUpdateProfile edits the mutable profile fields. Changing the category
// only affects future bookings; past bookings keep their frozen tag.
func AuthUpdateProfile(ctx *gin.Context) (user *models.User, status int, err error) {
	var body types.UpdateProfileRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	userId := ctx.GetUint("id")
	updates := map[string]any{}
	if body.Name != nil {
		updates["name"] = *body.Name
	}
	if body.Phone != nil {
		updates["phone"] = *body.Phone
	}
	if body.City != nil {
		updates["city"] = *body.City
	}
	if body.Category != nil {
		updates["category"] = types.NormalizeCategory(*body.Category)
	}
	var muser models.User
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.
				Model(&models.User{}).
				Where("id = ?", userId).
				Updates(updates).
				Error; err != nil {
				return err
			}
		}
		return tx.First(&muser, userId).Error
	})
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	if rd := lib.GetRedisClient(); rd != nil {
		if _, err := rd.JSONSet(ctx, fmt.Sprintf("%d:user", muser.ID), "$", &muser).Result(); err != nil {
			log.Printf("[redis] Error updating user cache: %s\n", err.Error())
		}
	}
	return &muser, http.StatusOK, nil
}

// AuthLogin verifies credentials and returns a signed session token. The
// route attaches it as an HTTP-only cookie.
func AuthLogin(ctx *gin.Context) (token *string, status int, err error) {
	var body types.LoginRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}

	db := db.GetDb()
	var muser models.User
	if err = db.
		Model(&models.User{}).
		Where(&models.User{Email: body.Email}).
		First(&muser).
		Error; err != nil {
		log.Printf("error: %s\n", err.Error())
		return nil, http.StatusNotFound, errors.New("no user account is associated with this email")
	}
	if !utils.CheckPasswordHash(body.Password, muser.Password) {
		return nil, http.StatusUnauthorized, errors.New("invalid credentials")
	}
	if !muser.IsActive {
		return nil, http.StatusUnauthorized, errors.New("account is deactivated")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.
			Model(&models.User{}).
			Where("id", muser.ID).
			Update("last_active", time.Now()).
			Error
	})
	if err != nil {
		log.Printf("Error logging in user [%d]: %s\n", muser.ID, err.Error())
		return nil, http.StatusBadRequest, err
	}

	jwt, err := utils.GenerateJWT(&muser)
	if err != nil {
		log.Printf("Error generating token for user [%d]: %s\n", muser.ID, err.Error())
		return nil, http.StatusInternalServerError, errors.New("could not create session")
	}

	if rd := lib.GetRedisClient(); rd != nil {
		if _, err := rd.JSONSet(ctx, fmt.Sprintf("%d:user", muser.ID), "$", &muser).Result(); err != nil {
			log.Printf("[redis] Error updating user cache: %s\n", err.Error())
		}
	}

	return &jwt, http.StatusOK, nil
}

// AuthRegisterOwner upgrades the acting account to a space owner: SpaceOwner
// row in pending approval, the business entity, and a zeroed balance ledger.
func AuthRegisterOwner(ctx *gin.Context) (owner *models.SpaceOwner, status int, err error) {
	var body types.RegisterOwnerRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		return nil, http.StatusBadRequest, err
	}
	userId := ctx.GetUint("id")

	var newOwner models.SpaceOwner
	db := db.GetDb()
	err = db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.
			Model(&models.SpaceOwner{}).
			Where(&models.SpaceOwner{UserID: userId}).
			Count(&count).
			Error; err != nil {
			return err
		}
		if count > 0 {
			return errors.New("account is already registered as a space owner")
		}
		// Business details arrive with the registration, so onboarding is
		// complete in the same breath; only admin approval remains.
		newOwner = models.SpaceOwner{
			UserID:             userId,
			ApprovalStatus:     types.APPROVAL_PENDING,
			OnboardingComplete: true,
			PlanTier:           types.PLAN_BASIC,
		}
		if err := tx.Create(&newOwner).Error; err != nil {
			return err
		}
		business := models.BusinessInfo{
			OwnerID:      newOwner.ID,
			LegalName:    body.LegalName,
			TaxID:        body.TaxID,
			Address:      body.Address,
			City:         body.City,
			PostalCode:   body.PostalCode,
			ContactEmail: body.ContactEmail,
			ContactPhone: body.ContactPhone,
		}
		if err := tx.Create(&business).Error; err != nil {
			return err
		}
		balance := models.BusinessBalance{BusinessID: business.ID}
		if err := tx.Create(&balance).Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.User{}).
			Where("id = ?", userId).
			Update("role", types.ROLE_OWNER).
			Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, http.StatusBadRequest, err
	}
	return &newOwner, http.StatusCreated, nil
}

// AuthLogout clears the cached profile; the route clears the cookie.
func AuthLogout(ctx *gin.Context) {
	userId := ctx.GetUint("id")
	if rd := lib.GetRedisClient(); rd != nil {
		if _, err := rd.Del(context.Background(), fmt.Sprintf("%d:user", userId)).Result(); err != nil {
			log.Printf("[redis] Error clearing user cache: %s\n", err.Error())
		}
	}
}
